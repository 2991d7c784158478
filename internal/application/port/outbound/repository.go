package outbound

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

// Page pairs one page of items with the unpaged filtered count, so callers
// can compute page totals.
type Page[T entity.Aggregate] struct {
	Items      []T
	TotalCount int64
}

// ReadRepository is the non-mutating query surface over one entity type.
// Every method honors ctx cancellation; implementations must not swallow
// the cancellation error.
type ReadRepository[T entity.Aggregate] interface {
	// GetByID returns the zero value and a nil error when the id does not
	// exist. A missing row is not a failure on this surface.
	GetByID(ctx context.Context, id uuid.UUID) (T, error)

	// GetAll materializes every row. Callers own the responsibility of not
	// invoking this on unbounded tables.
	GetAll(ctx context.Context) ([]T, error)

	Find(ctx context.Context, spec specification.Specification[T]) ([]T, error)

	// Single returns the only match, the zero value when nothing matches,
	// and ErrMultipleMatches when more than one row matches.
	Single(ctx context.Context, spec specification.Specification[T]) (T, error)

	Any(ctx context.Context, spec specification.Specification[T]) (bool, error)
	Count(ctx context.Context, spec specification.Specification[T]) (int64, error)

	// FindPaged overrides any paging carried by the specification with the
	// explicit pageIndex/pageSize. TotalCount reflects the filter, never
	// the page window; a page past the end is an empty page, not an error.
	FindPaged(ctx context.Context, spec specification.Specification[T], pageIndex, pageSize int) (Page[T], error)
}

// WriteRepository stages mutations. Nothing here touches durable storage;
// the owning unit of work's SaveChanges flushes all staged operations in
// one atomic batch.
type WriteRepository[T entity.Aggregate] interface {
	Add(ctx context.Context, e T) error
	AddRange(ctx context.Context, es []T) error

	// Update stages the entity for update whether or not the session loaded
	// it; an untracked entity is attached without a reload.
	Update(ctx context.Context, e T) error
	UpdateRange(ctx context.Context, es []T) error

	// Remove stages a soft delete when T implements entity.SoftDeletable,
	// a physical delete otherwise.
	Remove(ctx context.Context, e T) error
	RemoveRange(ctx context.Context, es []T) error

	// RemoveByID is idempotent: a missing id is a successful no-op, not a
	// NotFound failure.
	RemoveByID(ctx context.Context, id uuid.UUID) error
}

// Repository is the full read+write surface. A unit of work hands out one
// repository per entity type; the read-only view is the same underlying
// instance, never an independent stub.
type Repository[T entity.Aggregate] interface {
	ReadRepository[T]
	WriteRepository[T]
}

// ErrMultipleMatches surfaces broken single-row assumptions instead of
// silently returning an arbitrary row.
var ErrMultipleMatches = apperr.New(apperr.CodeConflict, "more than one row matches a single-row query")

// RepositoryFor resolves the memoized repository for T from a unit of
// work. Go methods cannot carry type parameters, so resolution is a
// package-level function over the uow's type-keyed cache.
func RepositoryFor[T entity.Aggregate](uow UnitOfWork) (Repository[T], error) {
	raw, err := uow.RepositoryByType(typeOf[T]())
	if err != nil {
		return nil, err
	}
	repo, ok := raw.(Repository[T])
	if !ok {
		return nil, apperr.Newf(apperr.CodeInvalidOperation,
			"repository registered for %s does not implement Repository", typeOf[T]())
	}
	return repo, nil
}

// ReadRepositoryFor returns the same underlying repository as
// RepositoryFor, narrowed to the read surface.
func ReadRepositoryFor[T entity.Aggregate](uow UnitOfWork) (ReadRepository[T], error) {
	repo, err := RepositoryFor[T](uow)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func typeOf[T entity.Aggregate]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
