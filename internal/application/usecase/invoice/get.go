package invoice

import (
	"context"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

type GetUseCaseImpl struct {
	Factory outbound.UnitOfWorkFactory
}

func NewGetUseCase(factory outbound.UnitOfWorkFactory) *GetUseCaseImpl {
	return &GetUseCaseImpl{Factory: factory}
}

// Execute loads one invoice with its customer eager-loaded.
func (uc *GetUseCaseImpl) Execute(ctx context.Context, id string) (DetailOutput, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return DetailOutput{}, apperr.Newf(apperr.CodeInvalidArgument, "invalid invoice id %q", id)
	}

	uow, err := uc.Factory.New(ctx)
	if err != nil {
		return DetailOutput{}, err
	}
	defer uow.Close()

	repo, err := outbound.ReadRepositoryFor[*entity.Invoice](uow)
	if err != nil {
		return DetailOutput{}, err
	}

	inv, err := repo.Single(ctx, specification.NewBuilder[*entity.Invoice]().
		Where("ID", specification.Eq, invoiceID).
		Include("Customer").
		MustBuild())
	if err != nil {
		return DetailOutput{}, err
	}
	if inv == nil {
		return DetailOutput{}, apperr.Newf(apperr.CodeNotFound, "invoice %s not found", id)
	}

	out := DetailOutput{Output: toOutput(inv)}
	if c := inv.Customer(); c != nil {
		out.CustomerCode = c.Code()
		out.CustomerName = c.Name()
	}
	return out, nil
}
