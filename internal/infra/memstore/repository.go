package memstore

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

type opKind int

const (
	opPut opKind = iota
	opRemove
	opRemoveByID
)

type stagedOp[T entity.Aggregate] struct {
	kind opKind
	ent  T
	id   uuid.UUID
}

// flushable is how the unit of work drains a repository's pending buffer
// without knowing its entity type.
type flushable interface {
	flush(w target) (int, error)
	discard()
}

// repository buffers writes and serves reads over the unit of work's
// merged view. One instance per entity type per unit of work.
type repository[T entity.Aggregate] struct {
	uow          *UnitOfWork
	typ          reflect.Type
	tenantScoped bool
	softDelete   bool
	pending      []stagedOp[T]
}

var (
	tenantOwnedIface   = reflect.TypeOf((*entity.TenantOwned)(nil)).Elem()
	softDeletableIface = reflect.TypeOf((*entity.SoftDeletable)(nil)).Elem()
)

func newRepository[T entity.Aggregate](u *UnitOfWork) *repository[T] {
	t := typeOf[T]()
	return &repository[T]{
		uow:          u,
		typ:          t,
		tenantScoped: t.Implements(tenantOwnedIface),
		softDelete:   t.Implements(softDeletableIface),
	}
}

// tenantID resolves the owning tenant for scoped entity types. An
// unresolved tenant is an error, never a wildcard.
func (r *repository[T]) tenantID() (uuid.UUID, bool, error) {
	if !r.tenantScoped {
		return uuid.Nil, false, nil
	}
	id, err := r.uow.tenants.CurrentTenantID()
	if err != nil {
		return uuid.Nil, true, err
	}
	return id, true, nil
}

func (r *repository[T]) actor() string {
	if name := r.uow.tenants.CurrentTenantName(); name != "" {
		return name
	}
	return "system"
}

// --- write surface -------------------------------------------------------

func (r *repository[T]) Add(ctx context.Context, e T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tid, scoped, err := r.tenantID()
	if err != nil {
		return err
	}
	if scoped {
		any(e).(entity.TenantOwned).SetTenantID(tid)
	}
	r.pending = append(r.pending, stagedOp[T]{kind: opPut, ent: e, id: e.GetID()})
	return nil
}

func (r *repository[T]) AddRange(ctx context.Context, es []T) error {
	for _, e := range es {
		if err := r.Add(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Update attaches the entity for update whether or not this session loaded
// it; no reload happens.
func (r *repository[T]) Update(ctx context.Context, e T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := r.tenantID(); err != nil {
		return err
	}
	r.pending = append(r.pending, stagedOp[T]{kind: opPut, ent: e, id: e.GetID()})
	return nil
}

func (r *repository[T]) UpdateRange(ctx context.Context, es []T) error {
	for _, e := range es {
		if err := r.Update(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Remove stages a soft delete for soft-deletable entities, a physical
// delete otherwise.
func (r *repository[T]) Remove(ctx context.Context, e T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := r.tenantID(); err != nil {
		return err
	}
	if r.softDelete {
		any(e).(entity.SoftDeletable).MarkAsDeleted(time.Now().UTC(), r.actor())
		r.pending = append(r.pending, stagedOp[T]{kind: opPut, ent: e, id: e.GetID()})
		return nil
	}
	r.pending = append(r.pending, stagedOp[T]{kind: opRemove, ent: e, id: e.GetID()})
	return nil
}

func (r *repository[T]) RemoveRange(ctx context.Context, es []T) error {
	for _, e := range es {
		if err := r.Remove(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// RemoveByID is an idempotent delete: a missing id flushes as zero
// affected rows, not a failure.
func (r *repository[T]) RemoveByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := r.tenantID(); err != nil {
		return err
	}
	r.pending = append(r.pending, stagedOp[T]{kind: opRemoveByID, id: id})
	return nil
}

// flush applies staged operations to the write target. Caller (the unit of
// work) holds the store write lock, so the whole batch is atomic. Tenant
// scope is re-checked against the stored row here: a staged id can never
// touch another tenant's row.
func (r *repository[T]) flush(w target) (int, error) {
	if len(r.pending) == 0 {
		return 0, nil
	}
	tid, scoped, err := r.tenantID()
	if err != nil {
		return 0, err
	}
	ownedByOther := func(row any) bool {
		return scoped && row.(entity.TenantOwned).GetTenantID() != tid
	}

	affected := 0
	for _, op := range r.pending {
		switch op.kind {
		case opPut:
			if row, ok := w.lookup(r.uow, r.typ, op.id); ok && ownedByOther(row) {
				continue
			}
			// stored rows are snapshots; later caller mutations stay local
			w.put(r.typ, op.id, op.ent.Snapshot())
			affected++
		case opRemove, opRemoveByID:
			row, ok := w.lookup(r.uow, r.typ, op.id)
			if !ok || ownedByOther(row) {
				continue
			}
			if op.kind == opRemoveByID && r.softDelete {
				ent := row.(entity.Aggregate).Snapshot().(T)
				if sd := any(ent).(entity.SoftDeletable); !sd.IsDeleted() {
					sd.MarkAsDeleted(time.Now().UTC(), r.actor())
					w.put(r.typ, op.id, ent)
					affected++
				}
				continue
			}
			if w.delete(r.uow, r.typ, op.id) {
				affected++
			}
		}
	}
	r.pending = r.pending[:0]
	return affected, nil
}

func (r *repository[T]) discard() {
	r.pending = r.pending[:0]
}

// --- read surface --------------------------------------------------------

func (r *repository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	tid, scoped, err := r.tenantID()
	if err != nil {
		return zero, err
	}
	row, ok := r.uow.lookup(r.typ, id)
	if !ok {
		return zero, nil
	}
	e := row.(T)
	if scoped && any(e).(entity.TenantOwned).GetTenantID() != tid {
		return zero, nil
	}
	if r.softDelete && any(e).(entity.SoftDeletable).IsDeleted() {
		return zero, nil
	}
	return e.Snapshot().(T), nil
}

func (r *repository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.Find(ctx, specification.All[T]())
}

func (r *repository[T]) Find(ctx context.Context, spec specification.Specification[T]) ([]T, error) {
	items, err := r.filtered(ctx, spec)
	if err != nil {
		return nil, err
	}
	sortItems(items, spec.Orderings())
	if p, ok := spec.Paging(); ok {
		items = pageSlice(items, p)
	}
	if err := r.loadIncludes(ctx, items, spec.Includes()); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository[T]) Single(ctx context.Context, spec specification.Specification[T]) (T, error) {
	var zero T
	items, err := r.filtered(ctx, spec)
	if err != nil {
		return zero, err
	}
	switch len(items) {
	case 0:
		return zero, nil
	case 1:
		if err := r.loadIncludes(ctx, items, spec.Includes()); err != nil {
			return zero, err
		}
		return items[0], nil
	default:
		return zero, outbound.ErrMultipleMatches
	}
}

func (r *repository[T]) Any(ctx context.Context, spec specification.Specification[T]) (bool, error) {
	items, err := r.filtered(ctx, spec)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

func (r *repository[T]) Count(ctx context.Context, spec specification.Specification[T]) (int64, error) {
	items, err := r.filtered(ctx, spec)
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

// FindPaged fixes the evaluation order: filter, then sort, then page, then
// includes. TotalCount is the filtered count before the page window.
func (r *repository[T]) FindPaged(ctx context.Context, spec specification.Specification[T], pageIndex, pageSize int) (outbound.Page[T], error) {
	if pageIndex < 1 {
		return outbound.Page[T]{}, apperr.Newf(apperr.CodeInvalidArgument, "page index must be >= 1, got %d", pageIndex)
	}
	if pageSize < 1 {
		return outbound.Page[T]{}, apperr.Newf(apperr.CodeInvalidArgument, "page size must be >= 1, got %d", pageSize)
	}

	items, err := r.filtered(ctx, spec)
	if err != nil {
		return outbound.Page[T]{}, err
	}
	total := int64(len(items))
	sortItems(items, spec.Orderings())
	page := pageSlice(items, specification.Paging{PageIndex: pageIndex, PageSize: pageSize})
	if err := r.loadIncludes(ctx, page, spec.Includes()); err != nil {
		return outbound.Page[T]{}, err
	}
	return outbound.Page[T]{Items: page, TotalCount: total}, nil
}

// filtered applies tenant scope, the soft-delete default and the
// specification's conditions, in that order.
func (r *repository[T]) filtered(ctx context.Context, spec specification.Specification[T]) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tid, scoped, err := r.tenantID()
	if err != nil {
		return nil, err
	}

	rows := r.uow.snapshot(r.typ)
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		e := row.(T)
		if scoped && any(e).(entity.TenantOwned).GetTenantID() != tid {
			continue
		}
		if r.softDelete && !spec.IncludesDeleted() && any(e).(entity.SoftDeletable).IsDeleted() {
			continue
		}
		if !spec.IsSatisfiedBy(e) {
			continue
		}
		out = append(out, e.Snapshot().(T))
	}
	return out, nil
}

func (r *repository[T]) loadIncludes(ctx context.Context, items []T, includes []string) error {
	if len(items) == 0 {
		return nil
	}
	for _, name := range includes {
		raw, ok := r.uow.store.relationLoader(r.typ, name)
		if !ok {
			return apperr.Newf(apperr.CodeInvalidArgument, "unknown include %q for %s", name, r.typ)
		}
		load := raw.(func(context.Context, []T) error)
		if err := load(ctx, items); err != nil {
			return err
		}
	}
	return nil
}
