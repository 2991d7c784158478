package customer

import (
	"context"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

type ArchiveUseCaseImpl struct {
	Factory outbound.UnitOfWorkFactory
}

func NewArchiveUseCase(factory outbound.UnitOfWorkFactory) *ArchiveUseCaseImpl {
	return &ArchiveUseCaseImpl{Factory: factory}
}

// Execute archives the customer. Archiving an unknown or already archived
// id succeeds without effect.
func (uc *ArchiveUseCaseImpl) Execute(ctx context.Context, id string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Newf(apperr.CodeInvalidArgument, "invalid customer id %q", id)
	}

	uow, err := uc.Factory.New(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	if err != nil {
		return err
	}
	if err := repo.RemoveByID(ctx, customerID); err != nil {
		return err
	}
	_, err = uow.SaveChanges(ctx)
	return err
}
