package database

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

// sqlFilter is the scope every query runs under: the tenant for scoped
// entities and the soft-delete default unless the specification opts in.
type sqlFilter struct {
	tenantID   *uuid.UUID
	softDelete bool
}

// buildWhere renders the filter and the specification's conditions into a
// WHERE clause with positional arguments. Unknown fields and operators
// fail before the query runs.
func buildWhere[T entity.Aggregate](m Mapper[T], conds []specification.Condition, f sqlFilter, includeDeleted bool, args *[]any) (string, error) {
	var parts []string

	if f.tenantID != nil {
		col, ok := m.Column("TenantID")
		if !ok {
			return "", apperr.Newf(apperr.CodeInvalidOperation, "%s has no tenant column", m.Table())
		}
		*args = append(*args, *f.tenantID)
		parts = append(parts, fmt.Sprintf("%s = $%d", col, len(*args)))
	}
	if f.softDelete && !includeDeleted {
		parts = append(parts, "is_deleted = FALSE")
	}

	for _, c := range conds {
		col, ok := m.Column(c.Field)
		if !ok {
			return "", apperr.Newf(apperr.CodeInvalidArgument, "unknown field %q for %s", c.Field, m.Table())
		}
		switch c.Op {
		case specification.Eq:
			*args = append(*args, c.Value)
			parts = append(parts, fmt.Sprintf("%s = $%d", col, len(*args)))
		case specification.NotEq:
			*args = append(*args, c.Value)
			parts = append(parts, fmt.Sprintf("%s <> $%d", col, len(*args)))
		case specification.Gt:
			*args = append(*args, c.Value)
			parts = append(parts, fmt.Sprintf("%s > $%d", col, len(*args)))
		case specification.Gte:
			*args = append(*args, c.Value)
			parts = append(parts, fmt.Sprintf("%s >= $%d", col, len(*args)))
		case specification.Lt:
			*args = append(*args, c.Value)
			parts = append(parts, fmt.Sprintf("%s < $%d", col, len(*args)))
		case specification.Lte:
			*args = append(*args, c.Value)
			parts = append(parts, fmt.Sprintf("%s <= $%d", col, len(*args)))
		case specification.Contains:
			*args = append(*args, c.Value)
			parts = append(parts, fmt.Sprintf("%s LIKE '%%' || $%d || '%%'", col, len(*args)))
		case specification.In:
			*args = append(*args, pq.Array(c.Value))
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, len(*args)))
		default:
			return "", apperr.Newf(apperr.CodeInvalidArgument, "unsupported operator %d", c.Op)
		}
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// buildOrderBy renders the orderings plus a trailing id tie-break, so the
// relational store pages in the same deterministic order as the in-memory
// one.
func buildOrderBy[T entity.Aggregate](m Mapper[T], orderings []specification.Ordering) (string, error) {
	parts := make([]string, 0, len(orderings)+1)
	onID := false
	for _, o := range orderings {
		col, ok := m.Column(o.Field)
		if !ok {
			return "", apperr.Newf(apperr.CodeInvalidArgument, "unknown field %q for %s", o.Field, m.Table())
		}
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		if col == "id" {
			onID = true
		}
		parts = append(parts, col+" "+dir)
	}
	if !onID {
		parts = append(parts, "id ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func buildLimit(p specification.Paging, args *[]any) string {
	*args = append(*args, p.PageSize)
	limit := len(*args)
	*args = append(*args, p.Offset())
	offset := len(*args)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", limit, offset)
}

// selectSQL assembles the full query for a specification. An explicit
// page overrides the specification's own paging; with neither, no window
// is rendered.
func selectSQL[T entity.Aggregate](m Mapper[T], spec specification.Specification[T], f sqlFilter, page *specification.Paging) (string, []any, error) {
	var args []any
	where, err := buildWhere(m, spec.Conditions(), f, spec.IncludesDeleted(), &args)
	if err != nil {
		return "", nil, err
	}
	order, err := buildOrderBy(m, spec.Orderings())
	if err != nil {
		return "", nil, err
	}
	q := "SELECT " + strings.Join(m.Columns(), ", ") + " FROM " + m.Table() + where + order
	switch {
	case page != nil:
		q += buildLimit(*page, &args)
	default:
		if p, ok := spec.Paging(); ok {
			q += buildLimit(p, &args)
		}
	}
	return q, args, nil
}

func countSQL[T entity.Aggregate](m Mapper[T], spec specification.Specification[T], f sqlFilter) (string, []any, error) {
	var args []any
	where, err := buildWhere(m, spec.Conditions(), f, spec.IncludesDeleted(), &args)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + m.Table() + where, args, nil
}

func existsSQL[T entity.Aggregate](m Mapper[T], spec specification.Specification[T], f sqlFilter) (string, []any, error) {
	var args []any
	where, err := buildWhere(m, spec.Conditions(), f, spec.IncludesDeleted(), &args)
	if err != nil {
		return "", nil, err
	}
	return "SELECT EXISTS (SELECT 1 FROM " + m.Table() + where + ")", args, nil
}

// upsertSQL writes a row whether it is new or attached for update, which
// matches the staged-put semantics of the write surface. For tenant-scoped
// tables the update arm only fires when the existing row belongs to the
// same tenant, so an id collision cannot overwrite another tenant's row.
func upsertSQL[T entity.Aggregate](m Mapper[T], tenantCol string) string {
	cols := m.Columns()
	ph := make([]string, len(cols))
	sets := make([]string, 0, len(cols)-1)
	for i, c := range cols {
		ph[i] = fmt.Sprintf("$%d", i+1)
		if c != "id" {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	q := "INSERT INTO " + m.Table() + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(ph, ", ") + ") ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
	if tenantCol != "" {
		q += fmt.Sprintf(" WHERE %s.%s = EXCLUDED.%s", m.Table(), tenantCol, tenantCol)
	}
	return q
}
