package invoice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

// InvoiceSeries is the number series documents in this module draw from.
const InvoiceSeries = "INV"

type CreateUseCaseImpl struct {
	Factory outbound.UnitOfWorkFactory
	Numbers outbound.NumberGenerator
}

func NewCreateUseCase(factory outbound.UnitOfWorkFactory, numbers outbound.NumberGenerator) *CreateUseCaseImpl {
	return &CreateUseCaseImpl{Factory: factory, Numbers: numbers}
}

// Execute issues an invoice: number from the gapless series, then invoice
// row and outbox event land in one save.
func (uc *CreateUseCaseImpl) Execute(ctx context.Context, input CreateInput) (Output, error) {
	customerID, err := uuid.Parse(input.CustomerID)
	if err != nil {
		return Output{}, apperr.Newf(apperr.CodeInvalidArgument, "invalid customer id %q", input.CustomerID)
	}

	uow, err := uc.Factory.New(ctx)
	if err != nil {
		return Output{}, err
	}
	defer uow.Close()

	customers, err := outbound.ReadRepositoryFor[*entity.Customer](uow)
	if err != nil {
		return Output{}, err
	}
	cust, err := customers.GetByID(ctx, customerID)
	if err != nil {
		return Output{}, err
	}
	if cust == nil {
		return Output{}, apperr.Newf(apperr.CodeNotFound, "customer %s not found", input.CustomerID)
	}

	number, err := uc.Numbers.Next(ctx, InvoiceSeries, time.Now().UTC().Year())
	if err != nil {
		return Output{}, err
	}

	inv, err := entity.NewInvoice(number, customerID, input.Amount)
	if err != nil {
		return Output{}, err
	}

	invoices, err := outbound.RepositoryFor[*entity.Invoice](uow)
	if err != nil {
		return Output{}, err
	}
	if err := invoices.Add(ctx, inv); err != nil {
		return Output{}, err
	}

	if err := stageIssuedEvent(ctx, uow, cust.GetTenantID(), inv); err != nil {
		return Output{}, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return Output{}, err
	}
	return toOutput(inv), nil
}

func stageIssuedEvent(ctx context.Context, uow outbound.UnitOfWork, tenantID uuid.UUID, inv *entity.Invoice) error {
	outboxRepo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(toOutput(inv))
	if err != nil {
		return err
	}
	evt := entity.NewOutboxEvent(tenantID, inv.GetID(), "invoice.issued", "finance.invoices", payload)
	return outboxRepo.Add(ctx, evt)
}

func toOutput(inv *entity.Invoice) Output {
	return Output{
		ID:         inv.GetID().String(),
		Number:     inv.Number(),
		CustomerID: inv.CustomerID().String(),
		Amount:     inv.Amount(),
		Status:     string(inv.Status()),
		IssuedAt:   inv.IssuedAt(),
	}
}
