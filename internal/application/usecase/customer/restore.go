package customer

import (
	"context"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

type RestoreUseCaseImpl struct {
	Factory outbound.UnitOfWorkFactory
}

func NewRestoreUseCase(factory outbound.UnitOfWorkFactory) *RestoreUseCaseImpl {
	return &RestoreUseCaseImpl{Factory: factory}
}

// Execute brings an archived customer back. The lookup opts into deleted
// rows because default reads cannot see the row being restored.
func (uc *RestoreUseCaseImpl) Execute(ctx context.Context, id string) (Output, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return Output{}, apperr.Newf(apperr.CodeInvalidArgument, "invalid customer id %q", id)
	}

	uow, err := uc.Factory.New(ctx)
	if err != nil {
		return Output{}, err
	}
	defer uow.Close()

	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	if err != nil {
		return Output{}, err
	}

	c, err := repo.Single(ctx, specification.NewBuilder[*entity.Customer]().
		Where("ID", specification.Eq, customerID).
		IncludeDeleted().
		MustBuild())
	if err != nil {
		return Output{}, err
	}
	if c == nil {
		return Output{}, apperr.Newf(apperr.CodeNotFound, "customer %s not found", id)
	}

	c.Restore()
	if err := repo.Update(ctx, c); err != nil {
		return Output{}, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return Output{}, err
	}
	return toOutput(c), nil
}
