package customer

import "context"

type CreateUseCase interface {
	Execute(ctx context.Context, input CreateInput) (Output, error)
}

type ArchiveUseCase interface {
	Execute(ctx context.Context, id string) error
}

type RestoreUseCase interface {
	Execute(ctx context.Context, id string) (Output, error)
}

type ListUseCase interface {
	Execute(ctx context.Context, input ListInput) (ListOutput, error)
}
