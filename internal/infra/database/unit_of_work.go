package database

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/pkg/apperr"
	"github.com/stocker-erp/stocker/pkg/logger"
)

// UnitOfWork confines one logical operation on one connection pool. Writes
// stage in the repositories and flush on SaveChanges; with no explicit
// transaction the flush runs in its own short transaction so a batch is
// still atomic. Not safe for concurrent use.
type UnitOfWork struct {
	db      *sql.DB
	reg     *Registry
	tenants outbound.TenantContext
	repos   map[reflect.Type]any
	tx      *sql.Tx
	log     logger.Logger
	closed  bool
}

var _ outbound.UnitOfWork = (*UnitOfWork)(nil)

// RepositoryByType hands out the memoized repository for the entity type.
// Repositories carry staged writes, so a second instance for the same type
// would split the pending buffer.
func (u *UnitOfWork) RepositoryByType(t reflect.Type) (any, error) {
	if u.closed {
		return nil, outbound.ErrUnitOfWorkClosed
	}
	if r, ok := u.repos[t]; ok {
		return r, nil
	}
	factory, ok := u.reg.factories[t]
	if !ok {
		return nil, apperr.Newf(apperr.CodeInvalidOperation, "entity type %s is not registered with the store", t)
	}
	r := factory(u)
	u.repos[t] = r
	return r, nil
}

// querier routes reads through the active transaction when there is one,
// so a session reads its own uncommitted writes.
func (u *UnitOfWork) querier() querier {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	if u.closed {
		return 0, outbound.ErrUnitOfWorkClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if u.tx != nil {
		return u.flushAll(ctx, u.tx)
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save transaction: %w", err)
	}
	n, err := u.flushAll(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return 0, fmt.Errorf("flush: %v, rollback: %w", err, rbErr)
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save transaction: %w", err)
	}
	return n, nil
}

func (u *UnitOfWork) flushAll(ctx context.Context, q querier) (int, error) {
	total := 0
	for _, r := range u.repos {
		n, err := r.(flushable).flush(ctx, q)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (u *UnitOfWork) SaveEntities(ctx context.Context) (bool, error) {
	n, err := u.SaveChanges(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	if u.closed {
		return outbound.ErrUnitOfWorkClosed
	}
	if u.tx != nil {
		return outbound.ErrTransactionActive
	}
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWork) CommitTransaction(ctx context.Context) error {
	if u.closed {
		return outbound.ErrUnitOfWorkClosed
	}
	if u.tx == nil {
		return outbound.ErrNoActiveTransaction
	}
	// pending changes flush into the transaction before the commit
	if _, err := u.flushAll(ctx, u.tx); err != nil {
		if rbErr := u.tx.Rollback(); rbErr != nil {
			u.log.Error(ctx, "rollback after failed flush", logger.WithError(rbErr))
		}
		u.tx = nil
		return err
	}
	err := u.tx.Commit()
	u.tx = nil
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (u *UnitOfWork) RollbackTransaction(ctx context.Context) error {
	if u.closed {
		return outbound.ErrUnitOfWorkClosed
	}
	if u.tx == nil {
		return outbound.ErrNoActiveTransaction
	}
	err := u.tx.Rollback()
	u.tx = nil
	for _, r := range u.repos {
		r.(flushable).discard()
	}
	if err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

func (u *UnitOfWork) HasActiveTransaction() bool { return u.tx != nil }

// Close releases the session. A transaction left open is rolled back, not
// leaked. Safe to call more than once.
func (u *UnitOfWork) Close() error {
	if u.closed {
		return nil
	}
	if u.tx != nil {
		if err := u.RollbackTransaction(context.Background()); err != nil {
			u.log.Error(context.Background(), "rollback on close", logger.WithError(err))
		}
	}
	u.closed = true
	return nil
}
