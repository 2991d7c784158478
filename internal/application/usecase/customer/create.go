package customer

import (
	"context"
	"encoding/json"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

type CreateUseCaseImpl struct {
	Factory outbound.UnitOfWorkFactory
}

func NewCreateUseCase(factory outbound.UnitOfWorkFactory) *CreateUseCaseImpl {
	return &CreateUseCaseImpl{Factory: factory}
}

// Execute creates a customer and stages its integration event in the same
// save, so the event exists exactly when the customer does.
func (uc *CreateUseCaseImpl) Execute(ctx context.Context, input CreateInput) (Output, error) {
	uow, err := uc.Factory.New(ctx)
	if err != nil {
		return Output{}, err
	}
	defer uow.Close()

	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	if err != nil {
		return Output{}, err
	}

	taken, err := repo.Any(ctx, specification.NewBuilder[*entity.Customer]().
		Where("Code", specification.Eq, input.Code).
		MustBuild())
	if err != nil {
		return Output{}, err
	}
	if taken {
		return Output{}, apperr.Newf(apperr.CodeConflict, "customer code %q is already in use", input.Code)
	}

	c, err := entity.NewCustomer(input.Code, input.Name, input.Email)
	if err != nil {
		return Output{}, err
	}
	if err := repo.Add(ctx, c); err != nil {
		return Output{}, err
	}

	if err := stageCreatedEvent(ctx, uow, c); err != nil {
		return Output{}, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return Output{}, err
	}
	return toOutput(c), nil
}

func stageCreatedEvent(ctx context.Context, uow outbound.UnitOfWork, c *entity.Customer) error {
	outboxRepo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(toOutput(c))
	if err != nil {
		return err
	}
	evt := entity.NewOutboxEvent(c.GetTenantID(), c.GetID(), "customer.created", "crm.customers", payload)
	return outboxRepo.Add(ctx, evt)
}

func toOutput(c *entity.Customer) Output {
	return Output{
		ID:        c.GetID().String(),
		Code:      c.Code(),
		Name:      c.Name(),
		Email:     c.Email(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}
