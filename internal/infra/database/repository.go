package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

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
	flush(ctx context.Context, q querier) (int, error)
	discard()
}

// repository buffers writes and serves reads through the unit of work's
// querier. One instance per entity type per unit of work.
type repository[T entity.Aggregate] struct {
	uow          *UnitOfWork
	m            Mapper[T]
	typ          reflect.Type
	tenantScoped bool
	softDelete   bool
	pending      []stagedOp[T]
}

var (
	tenantOwnedIface   = reflect.TypeOf((*entity.TenantOwned)(nil)).Elem()
	softDeletableIface = reflect.TypeOf((*entity.SoftDeletable)(nil)).Elem()
)

func newRepository[T entity.Aggregate](u *UnitOfWork, m Mapper[T]) *repository[T] {
	t := typeOf[T]()
	return &repository[T]{
		uow:          u,
		m:            m,
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

func (r *repository[T]) filter() (sqlFilter, error) {
	tid, scoped, err := r.tenantID()
	if err != nil {
		return sqlFilter{}, err
	}
	f := sqlFilter{softDelete: r.softDelete}
	if scoped {
		f.tenantID = &tid
	}
	return f, nil
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

// flush applies staged operations in order on the caller's querier, which
// is always a transaction. Every statement repeats the tenant predicate so
// a staged id can never touch another tenant's row.
func (r *repository[T]) flush(ctx context.Context, q querier) (int, error) {
	if len(r.pending) == 0 {
		return 0, nil
	}
	f, err := r.filter()
	if err != nil {
		return 0, err
	}
	tenantCol := ""
	if f.tenantID != nil {
		col, ok := r.m.Column("TenantID")
		if !ok {
			return 0, apperr.Newf(apperr.CodeInvalidOperation, "%s has no tenant column", r.m.Table())
		}
		tenantCol = col
	}

	affected := 0
	for _, op := range r.pending {
		var (
			res sql.Result
			err error
		)
		switch op.kind {
		case opPut:
			res, err = q.ExecContext(ctx, upsertSQL(r.m, tenantCol), r.m.Values(op.ent)...)
		case opRemove, opRemoveByID:
			if op.kind == opRemoveByID && r.softDelete {
				stmt := "UPDATE " + r.m.Table() + " SET is_deleted = TRUE, deleted_at = $1, deleted_by = $2 WHERE id = $3 AND is_deleted = FALSE"
				args := []any{time.Now().UTC(), r.actor(), op.id}
				if tenantCol != "" {
					args = append(args, *f.tenantID)
					stmt += fmt.Sprintf(" AND %s = $%d", tenantCol, len(args))
				}
				res, err = q.ExecContext(ctx, stmt, args...)
				break
			}
			stmt := "DELETE FROM " + r.m.Table() + " WHERE id = $1"
			args := []any{op.id}
			if tenantCol != "" {
				args = append(args, *f.tenantID)
				stmt += fmt.Sprintf(" AND %s = $%d", tenantCol, len(args))
			}
			res, err = q.ExecContext(ctx, stmt, args...)
		}
		if err != nil {
			return affected, mapPQError(err, r.m.Table())
		}
		if n, raErr := res.RowsAffected(); raErr == nil {
			affected += int(n)
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
	f, err := r.filter()
	if err != nil {
		return zero, err
	}

	q := "SELECT " + strings.Join(r.m.Columns(), ", ") + " FROM " + r.m.Table() + " WHERE id = $1"
	args := []any{id}
	if f.tenantID != nil {
		col, ok := r.m.Column("TenantID")
		if !ok {
			return zero, apperr.Newf(apperr.CodeInvalidOperation, "%s has no tenant column", r.m.Table())
		}
		args = append(args, *f.tenantID)
		q += fmt.Sprintf(" AND %s = $%d", col, len(args))
	}
	if f.softDelete {
		q += " AND is_deleted = FALSE"
	}

	e, err := r.m.Scan(r.uow.querier().QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, nil
	}
	if err != nil {
		return zero, mapPQError(err, r.m.Table())
	}
	return e, nil
}

func (r *repository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.Find(ctx, specification.All[T]())
}

func (r *repository[T]) Find(ctx context.Context, spec specification.Specification[T]) ([]T, error) {
	f, err := r.filter()
	if err != nil {
		return nil, err
	}
	q, args, err := selectSQL(r.m, spec, f, nil)
	if err != nil {
		return nil, err
	}
	items, err := r.queryMany(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if err := r.loadIncludes(ctx, items, spec.Includes()); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository[T]) Single(ctx context.Context, spec specification.Specification[T]) (T, error) {
	var zero T
	f, err := r.filter()
	if err != nil {
		return zero, err
	}
	q, args, err := selectSQL(r.m, spec, f, nil)
	if err != nil {
		return zero, err
	}
	// two rows are enough to prove ambiguity
	if _, paged := spec.Paging(); !paged {
		q += " LIMIT 2"
	}
	items, err := r.queryMany(ctx, q, args)
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
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f, err := r.filter()
	if err != nil {
		return false, err
	}
	q, args, err := existsSQL(r.m, spec, f)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := r.uow.querier().QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return false, mapPQError(err, r.m.Table())
	}
	return exists, nil
}

func (r *repository[T]) Count(ctx context.Context, spec specification.Specification[T]) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := r.filter()
	if err != nil {
		return 0, err
	}
	q, args, err := countSQL(r.m, spec, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.uow.querier().QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, mapPQError(err, r.m.Table())
	}
	return n, nil
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

	total, err := r.Count(ctx, spec)
	if err != nil {
		return outbound.Page[T]{}, err
	}

	f, err := r.filter()
	if err != nil {
		return outbound.Page[T]{}, err
	}
	page := specification.Paging{PageIndex: pageIndex, PageSize: pageSize}
	q, args, err := selectSQL(r.m, spec, f, &page)
	if err != nil {
		return outbound.Page[T]{}, err
	}
	items, err := r.queryMany(ctx, q, args)
	if err != nil {
		return outbound.Page[T]{}, err
	}
	if err := r.loadIncludes(ctx, items, spec.Includes()); err != nil {
		return outbound.Page[T]{}, err
	}
	return outbound.Page[T]{Items: items, TotalCount: total}, nil
}

func (r *repository[T]) queryMany(ctx context.Context, q string, args []any) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.uow.querier().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapPQError(err, r.m.Table())
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		e, err := r.m.Scan(rows)
		if err != nil {
			return nil, mapPQError(err, r.m.Table())
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, r.m.Table())
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *repository[T]) loadIncludes(ctx context.Context, items []T, includes []string) error {
	if len(items) == 0 {
		return nil
	}
	for _, name := range includes {
		raw, ok := r.uow.reg.relationLoader(r.typ, name)
		if !ok {
			return apperr.Newf(apperr.CodeInvalidArgument, "unknown include %q for %s", name, r.typ)
		}
		load := raw.(func(context.Context, querier, []T) error)
		if err := load(ctx, r.uow.querier(), items); err != nil {
			return err
		}
	}
	return nil
}

// mapPQError lifts driver errors worth distinguishing into the shared
// taxonomy. Unique violations become conflicts; everything else passes
// through for the default classification.
func mapPQError(err error, table string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperr.Wrap(apperr.CodeConflict, err, fmt.Sprintf("duplicate key in %s", table))
	}
	return err
}
