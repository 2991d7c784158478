package entity

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusPaid   InvoiceStatus = "paid"
)

// Invoice is a tenant-owned finance document. Its number comes from the
// serialized per-tenant sequence generator and is unique within a series.
type Invoice struct {
	Base
	Tenancy
	number     string
	customerID uuid.UUID
	amount     float64
	status     InvoiceStatus
	issuedAt   time.Time

	// customer is eagerly loaded on demand via the "Customer" include.
	customer *Customer
}

func NewInvoice(number string, customerID uuid.UUID, amount float64) (*Invoice, error) {
	inv := &Invoice{
		Base:       NewBase(uuid.New()),
		number:     number,
		customerID: customerID,
		amount:     amount,
		status:     InvoiceStatusIssued,
		issuedAt:   time.Now().UTC(),
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (i *Invoice) Validate() error {
	if i.GetID() == uuid.Nil {
		return ErrIDIsRequired
	}
	if i.number == "" {
		return ErrNumberIsRequired
	}
	if i.customerID == uuid.Nil {
		return ErrCustomerIsRequired
	}
	if i.amount <= 0 {
		return ErrAmountMustBePos
	}
	return nil
}

func (i *Invoice) Number() string        { return i.number }
func (i *Invoice) CustomerID() uuid.UUID { return i.customerID }
func (i *Invoice) Amount() float64       { return i.amount }
func (i *Invoice) Status() InvoiceStatus { return i.status }
func (i *Invoice) IssuedAt() time.Time   { return i.issuedAt }
func (i *Invoice) Customer() *Customer   { return i.customer }

func (i *Invoice) MarkPaid(by string) {
	i.status = InvoiceStatusPaid
	i.Touch(by)
}

// AttachCustomer is called by include loaders when the related customer is
// eagerly materialized.
func (i *Invoice) AttachCustomer(c *Customer) { i.customer = c }

func (i *Invoice) Snapshot() Aggregate {
	cp := *i
	return &cp
}

func (i *Invoice) Field(name string) (any, bool) {
	switch name {
	case "ID":
		return i.GetID(), true
	case "TenantID":
		return i.GetTenantID(), true
	case "Number":
		return i.number, true
	case "CustomerID":
		return i.customerID, true
	case "Amount":
		return i.amount, true
	case "Status":
		return string(i.status), true
	case "IssuedAt":
		return i.issuedAt, true
	case "CreatedAt":
		return i.CreatedAt(), true
	case "UpdatedAt":
		return i.UpdatedAt(), true
	}
	return nil, false
}

// RehydrateInvoice rebuilds an invoice from persisted state. Store use only.
func RehydrateInvoice(id, tenantID uuid.UUID, number string, customerID uuid.UUID,
	amount float64, status InvoiceStatus, issuedAt time.Time,
	createdAt, updatedAt time.Time, createdBy, updatedBy string) *Invoice {

	inv := &Invoice{
		number:     number,
		customerID: customerID,
		amount:     amount,
		status:     status,
		issuedAt:   issuedAt,
	}
	inv.Rehydrate(id, createdAt, updatedAt, createdBy, updatedBy)
	inv.SetTenantID(tenantID)
	return inv
}
