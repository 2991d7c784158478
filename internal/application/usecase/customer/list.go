package customer

import (
	"context"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
)

type ListUseCaseImpl struct {
	Factory outbound.UnitOfWorkFactory
}

func NewListUseCase(factory outbound.UnitOfWorkFactory) *ListUseCaseImpl {
	return &ListUseCaseImpl{Factory: factory}
}

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func (uc *ListUseCaseImpl) Execute(ctx context.Context, input ListInput) (ListOutput, error) {
	if input.PageIndex < 1 {
		input.PageIndex = 1
	}
	if input.PageSize < 1 {
		input.PageSize = defaultPageSize
	}
	if input.PageSize > maxPageSize {
		input.PageSize = maxPageSize
	}

	uow, err := uc.Factory.New(ctx)
	if err != nil {
		return ListOutput{}, err
	}
	defer uow.Close()

	repo, err := outbound.ReadRepositoryFor[*entity.Customer](uow)
	if err != nil {
		return ListOutput{}, err
	}

	b := specification.NewBuilder[*entity.Customer]().OrderBy("Name")
	if input.Search != "" {
		b = b.Where("Name", specification.Contains, input.Search)
	}
	page, err := repo.FindPaged(ctx, b.MustBuild(), input.PageIndex, input.PageSize)
	if err != nil {
		return ListOutput{}, err
	}

	items := make([]Output, 0, len(page.Items))
	for _, c := range page.Items {
		items = append(items, toOutput(c))
	}
	return ListOutput{
		Items:      items,
		TotalCount: page.TotalCount,
		PageIndex:  input.PageIndex,
		PageSize:   input.PageSize,
	}, nil
}
