package memstore

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

// overlay is the write view of an explicit transaction. SaveChanges inside
// the transaction lands here so the same unit of work reads its own
// uncommitted writes; Commit merges into the base tables, Rollback drops
// the overlay wholesale.
type overlay struct {
	rows       map[reflect.Type]map[uuid.UUID]any
	tombstones map[reflect.Type]map[uuid.UUID]struct{}
}

func newOverlay() *overlay {
	return &overlay{
		rows:       make(map[reflect.Type]map[uuid.UUID]any),
		tombstones: make(map[reflect.Type]map[uuid.UUID]struct{}),
	}
}

// UnitOfWork confines one logical operation. Not safe for concurrent use.
type UnitOfWork struct {
	store   *Store
	tenants outbound.TenantContext
	repos   map[reflect.Type]any
	tx      *overlay
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
	if !u.store.registered(t) {
		return nil, apperr.Newf(apperr.CodeInvalidOperation, "entity type %s is not registered with the store", t)
	}
	u.store.mu.RLock()
	factory := u.store.factories[t]
	u.store.mu.RUnlock()

	r := factory(u)
	u.repos[t] = r
	return r, nil
}

func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	if u.closed {
		return 0, outbound.ErrUnitOfWorkClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	total := 0
	for _, r := range u.repos {
		f := r.(flushable)
		n, err := f.flush(u.writeTarget())
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
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.tx != nil {
		return outbound.ErrTransactionActive
	}
	u.tx = newOverlay()
	return nil
}

func (u *UnitOfWork) CommitTransaction(ctx context.Context) error {
	if u.closed {
		return outbound.ErrUnitOfWorkClosed
	}
	if u.tx == nil {
		return outbound.ErrNoActiveTransaction
	}
	// pending changes flush into the overlay before the merge
	if _, err := u.SaveChanges(ctx); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for t, rows := range u.tx.rows {
		table := u.store.tables[t]
		for id, row := range rows {
			table[id] = row
		}
	}
	for t, ids := range u.tx.tombstones {
		table := u.store.tables[t]
		for id := range ids {
			delete(table, id)
		}
	}
	u.tx = nil
	return nil
}

func (u *UnitOfWork) RollbackTransaction(ctx context.Context) error {
	if u.closed {
		return outbound.ErrUnitOfWorkClosed
	}
	if u.tx == nil {
		return outbound.ErrNoActiveTransaction
	}
	u.tx = nil
	for _, r := range u.repos {
		r.(flushable).discard()
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
		_ = u.RollbackTransaction(context.Background())
	}
	u.closed = true
	return nil
}

// writeTarget returns where flushed rows land: the transaction overlay
// when one is active, the base tables otherwise. Caller holds store.mu.
func (u *UnitOfWork) writeTarget() target {
	if u.tx != nil {
		return target{ov: u.tx}
	}
	return target{base: u.store.tables}
}

// target abstracts "base tables" vs "transaction overlay" for flushes.
type target struct {
	base map[reflect.Type]map[uuid.UUID]any
	ov   *overlay
}

func (w target) put(t reflect.Type, id uuid.UUID, row any) {
	if w.ov != nil {
		if w.ov.rows[t] == nil {
			w.ov.rows[t] = make(map[uuid.UUID]any)
		}
		w.ov.rows[t][id] = row
		delete(w.ov.tombstones[t], id)
		return
	}
	w.base[t][id] = row
}

func (w target) delete(u *UnitOfWork, t reflect.Type, id uuid.UUID) bool {
	if w.ov != nil {
		_, inOverlay := w.ov.rows[t][id]
		_, inBase := u.store.tables[t][id]
		if !inOverlay && !inBase {
			return false
		}
		delete(w.ov.rows[t], id)
		if w.ov.tombstones[t] == nil {
			w.ov.tombstones[t] = make(map[uuid.UUID]struct{})
		}
		w.ov.tombstones[t][id] = struct{}{}
		return true
	}
	_, ok := w.base[t][id]
	delete(w.base[t], id)
	return ok
}

func (w target) lookup(u *UnitOfWork, t reflect.Type, id uuid.UUID) (any, bool) {
	if w.ov != nil {
		if _, dead := w.ov.tombstones[t][id]; dead {
			return nil, false
		}
		if row, ok := w.ov.rows[t][id]; ok {
			return row, true
		}
	}
	row, ok := u.store.tables[t][id]
	return row, ok
}

// snapshot returns the merged read view of one table: base rows overridden
// by the overlay, tombstoned rows removed. Takes the store read lock.
func (u *UnitOfWork) snapshot(t reflect.Type) []any {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	base := u.store.tables[t]
	out := make([]any, 0, len(base))
	for id, row := range base {
		if u.tx != nil {
			if _, dead := u.tx.tombstones[t][id]; dead {
				continue
			}
			if over, ok := u.tx.rows[t][id]; ok {
				out = append(out, over)
				continue
			}
		}
		out = append(out, row)
	}
	if u.tx != nil {
		for id, row := range u.tx.rows[t] {
			if _, exists := base[id]; !exists {
				out = append(out, row)
			}
		}
	}
	return out
}

func (u *UnitOfWork) lookup(t reflect.Type, id uuid.UUID) (any, bool) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	return u.writeTarget().lookup(u, t, id)
}
