package outbound

import (
	"context"
	"reflect"

	"github.com/stocker-erp/stocker/pkg/apperr"
)

// UnitOfWork is the transaction boundary and repository factory for one
// logical operation. It is not safe for concurrent use; confine each
// instance to a single request or message.
//
// Repositories buffer mutations; SaveChanges flushes every staged
// add/update/remove across all repositories of this unit of work in one
// atomic batch. Explicit transactions widen the boundary across several
// SaveChanges calls.
type UnitOfWork interface {
	// RepositoryByType returns the memoized repository for the entity type,
	// creating it lazily on first request. Repeated calls for the same type
	// return the same instance, since repositories carry pending-change
	// buffers. Use RepositoryFor / ReadRepositoryFor for the typed surface.
	RepositoryByType(t reflect.Type) (any, error)

	// SaveChanges flushes all staged mutations atomically and returns the
	// number of affected rows.
	SaveChanges(ctx context.Context) (int, error)

	// SaveEntities is the boolean convenience variant of SaveChanges.
	SaveEntities(ctx context.Context) (bool, error)

	// BeginTransaction fails with ErrTransactionActive when a transaction
	// is already open. No nesting, no silent no-op.
	BeginTransaction(ctx context.Context) error

	// CommitTransaction flushes pending changes, then commits. Fails with
	// ErrNoActiveTransaction when no transaction is open.
	CommitTransaction(ctx context.Context) error

	// RollbackTransaction discards the transaction and every staged-but-
	// unsaved change. Fails with ErrNoActiveTransaction when no transaction
	// is open.
	RollbackTransaction(ctx context.Context) error

	HasActiveTransaction() bool

	// Close releases the underlying session deterministically. A dangling
	// transaction is rolled back, never left open.
	Close() error
}

// UnitOfWorkFactory creates one unit of work per logical operation, bound
// to the tenant context carried by ctx.
type UnitOfWorkFactory interface {
	New(ctx context.Context) (UnitOfWork, error)
}

// Transaction-state misuse is a programmer error and always surfaces.
var (
	ErrTransactionActive   = apperr.New(apperr.CodeInvalidOperation, "a transaction is already active for this unit of work")
	ErrNoActiveTransaction = apperr.New(apperr.CodeInvalidOperation, "no active transaction for this unit of work")
	ErrUnitOfWorkClosed    = apperr.New(apperr.CodeInvalidOperation, "unit of work is closed")
)
