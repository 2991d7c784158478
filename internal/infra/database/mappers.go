package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stocker-erp/stocker/internal/domain/entity"
)

// NewDefaultRegistry wires the mappers and relation loaders for every
// persisted entity type.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	RegisterMapper[*entity.Customer](reg, customerMapper{})
	RegisterMapper[*entity.Invoice](reg, invoiceMapper{})
	RegisterMapper[*entity.NumberSequence](reg, sequenceMapper{})
	RegisterMapper[*entity.OutboxEvent](reg, outboxMapper{})
	RegisterRelation[*entity.Invoice](reg, "Customer", loadInvoiceCustomers)
	return reg
}

// --- customers -----------------------------------------------------------

type customerMapper struct{}

func (customerMapper) Table() string { return "customers" }

func (customerMapper) Columns() []string {
	return []string{
		"id", "tenant_id", "code", "name", "email",
		"is_deleted", "deleted_at", "deleted_by",
		"created_at", "updated_at", "created_by", "updated_by",
	}
}

func (customerMapper) Values(c *entity.Customer) []any {
	return []any{
		c.GetID(), c.GetTenantID(), c.Code(), c.Name(), c.Email(),
		c.IsDeleted(), c.DeletedAt(), c.DeletedBy(),
		c.CreatedAt(), c.UpdatedAt(), c.CreatedBy(), c.UpdatedBy(),
	}
}

func (customerMapper) Scan(row RowScanner) (*entity.Customer, error) {
	var (
		id, tenantID         uuid.UUID
		code, name, email    string
		deleted              bool
		deletedAt            *time.Time
		deletedBy            string
		createdAt, updatedAt time.Time
		createdBy, updatedBy string
	)
	if err := row.Scan(&id, &tenantID, &code, &name, &email,
		&deleted, &deletedAt, &deletedBy,
		&createdAt, &updatedAt, &createdBy, &updatedBy); err != nil {
		return nil, err
	}
	return entity.RehydrateCustomer(id, tenantID, code, name, email,
		createdAt, updatedAt, createdBy, updatedBy,
		deleted, deletedAt, deletedBy), nil
}

func (customerMapper) Column(field string) (string, bool) {
	switch field {
	case "ID":
		return "id", true
	case "TenantID":
		return "tenant_id", true
	case "Code":
		return "code", true
	case "Name":
		return "name", true
	case "Email":
		return "email", true
	case "IsDeleted":
		return "is_deleted", true
	case "CreatedAt":
		return "created_at", true
	case "UpdatedAt":
		return "updated_at", true
	}
	return "", false
}

// --- invoices ------------------------------------------------------------

type invoiceMapper struct{}

func (invoiceMapper) Table() string { return "invoices" }

func (invoiceMapper) Columns() []string {
	return []string{
		"id", "tenant_id", "number", "customer_id", "amount", "status", "issued_at",
		"created_at", "updated_at", "created_by", "updated_by",
	}
}

func (invoiceMapper) Values(i *entity.Invoice) []any {
	return []any{
		i.GetID(), i.GetTenantID(), i.Number(), i.CustomerID(), i.Amount(), string(i.Status()), i.IssuedAt(),
		i.CreatedAt(), i.UpdatedAt(), i.CreatedBy(), i.UpdatedBy(),
	}
}

func (invoiceMapper) Scan(row RowScanner) (*entity.Invoice, error) {
	var (
		id, tenantID, customerID uuid.UUID
		number, status           string
		amount                   float64
		issuedAt                 time.Time
		createdAt, updatedAt     time.Time
		createdBy, updatedBy     string
	)
	if err := row.Scan(&id, &tenantID, &number, &customerID, &amount, &status, &issuedAt,
		&createdAt, &updatedAt, &createdBy, &updatedBy); err != nil {
		return nil, err
	}
	return entity.RehydrateInvoice(id, tenantID, number, customerID,
		amount, entity.InvoiceStatus(status), issuedAt,
		createdAt, updatedAt, createdBy, updatedBy), nil
}

func (invoiceMapper) Column(field string) (string, bool) {
	switch field {
	case "ID":
		return "id", true
	case "TenantID":
		return "tenant_id", true
	case "Number":
		return "number", true
	case "CustomerID":
		return "customer_id", true
	case "Amount":
		return "amount", true
	case "Status":
		return "status", true
	case "IssuedAt":
		return "issued_at", true
	case "CreatedAt":
		return "created_at", true
	case "UpdatedAt":
		return "updated_at", true
	}
	return "", false
}

// loadInvoiceCustomers resolves the Customer include for a page of
// invoices with one query instead of one per row.
func loadInvoiceCustomers(ctx context.Context, q querier, items []*entity.Invoice) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, inv := range items {
		ids = append(ids, inv.CustomerID())
	}

	m := customerMapper{}
	rows, err := q.QueryContext(ctx,
		"SELECT id, tenant_id, code, name, email, is_deleted, deleted_at, deleted_by, created_at, updated_at, created_by, updated_by FROM customers WHERE id = ANY($1)",
		pq.Array(ids))
	if err != nil {
		return mapPQError(err, m.Table())
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*entity.Customer, len(items))
	for rows.Next() {
		c, err := m.Scan(rows)
		if err != nil {
			return mapPQError(err, m.Table())
		}
		byID[c.GetID()] = c
	}
	if err := rows.Err(); err != nil {
		return mapPQError(err, m.Table())
	}
	for _, inv := range items {
		inv.AttachCustomer(byID[inv.CustomerID()])
	}
	return nil
}

// --- number sequences ----------------------------------------------------

type sequenceMapper struct{}

func (sequenceMapper) Table() string { return "number_sequences" }

func (sequenceMapper) Columns() []string {
	return []string{"id", "tenant_id", "series", "year", "last_value", "created_at", "updated_at"}
}

func (sequenceMapper) Values(s *entity.NumberSequence) []any {
	return []any{s.GetID(), s.GetTenantID(), s.Series(), s.Year(), s.LastValue(), s.CreatedAt(), s.UpdatedAt()}
}

func (sequenceMapper) Scan(row RowScanner) (*entity.NumberSequence, error) {
	var (
		id, tenantID         uuid.UUID
		series               string
		year                 int
		lastValue            int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &tenantID, &series, &year, &lastValue, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return entity.RehydrateNumberSequence(id, tenantID, series, year, lastValue, createdAt, updatedAt), nil
}

func (sequenceMapper) Column(field string) (string, bool) {
	switch field {
	case "ID":
		return "id", true
	case "TenantID":
		return "tenant_id", true
	case "Series":
		return "series", true
	case "Year":
		return "year", true
	case "LastValue":
		return "last_value", true
	case "CreatedAt":
		return "created_at", true
	case "UpdatedAt":
		return "updated_at", true
	}
	return "", false
}

// --- outbox --------------------------------------------------------------

type outboxMapper struct{}

func (outboxMapper) Table() string { return "outbox_events" }

func (outboxMapper) Columns() []string {
	return []string{
		"id", "tenant_id", "aggregate_id", "event_type", "topic", "payload",
		"status", "attempts", "last_error", "processed_at", "created_at", "updated_at",
	}
}

func (outboxMapper) Values(e *entity.OutboxEvent) []any {
	return []any{
		e.GetID(), e.TenantID(), e.AggregateID(), e.EventType(), e.Topic(), e.Payload(),
		string(e.Status()), e.Attempts(), e.LastError(), e.ProcessedAt(), e.CreatedAt(), e.UpdatedAt(),
	}
}

func (outboxMapper) Scan(row RowScanner) (*entity.OutboxEvent, error) {
	var (
		id, tenantID, aggregateID uuid.UUID
		eventType, topic          string
		payload                   []byte
		status                    string
		attempts                  int
		lastError                 string
		processedAt               *time.Time
		createdAt, updatedAt      time.Time
	)
	if err := row.Scan(&id, &tenantID, &aggregateID, &eventType, &topic, &payload,
		&status, &attempts, &lastError, &processedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return entity.RehydrateOutboxEvent(id, tenantID, aggregateID, eventType, topic,
		payload, entity.OutboxStatus(status), attempts, lastError,
		processedAt, createdAt, updatedAt), nil
}

func (outboxMapper) Column(field string) (string, bool) {
	switch field {
	case "ID":
		return "id", true
	case "TenantID":
		return "tenant_id", true
	case "AggregateID":
		return "aggregate_id", true
	case "EventType":
		return "event_type", true
	case "Topic":
		return "topic", true
	case "Status":
		return "status", true
	case "Attempts":
		return "attempts", true
	case "CreatedAt":
		return "created_at", true
	case "UpdatedAt":
		return "updated_at", true
	}
	return "", false
}
