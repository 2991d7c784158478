package invoice

import "context"

type CreateUseCase interface {
	Execute(ctx context.Context, input CreateInput) (Output, error)
}

type GetUseCase interface {
	Execute(ctx context.Context, id string) (DetailOutput, error)
}
