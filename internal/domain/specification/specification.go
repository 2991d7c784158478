// Package specification holds the composable, immutable query definition
// shared by every store: filters, ordering, paging and eager-load includes.
// Concrete stores evaluate a specification in a fixed phase order
// (filter, order, page, include) so paging can never run before ordering.
package specification

import (
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

type Operator int

const (
	Eq Operator = iota
	NotEq
	Gt
	Gte
	Lt
	Lte
	// Contains is a case-sensitive substring match on string fields.
	Contains
	// In matches when the field equals any element of the condition value,
	// which must be a slice.
	In
)

// Condition is one field predicate. Conditions on a specification are
// AND-combined.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Ordering is one sort clause. Declaration order is priority order: the
// first clause sorts, later clauses break ties.
type Ordering struct {
	Field      string
	Descending bool
}

// Paging is 1-based. Both values are validated at build time; there is no
// silent clamping.
type Paging struct {
	PageIndex int
	PageSize  int
}

func (p Paging) Offset() int { return (p.PageIndex - 1) * p.PageSize }

// Specification is immutable once built. The same specification evaluated
// twice against unchanged data yields the same ordered result.
type Specification[T entity.Aggregate] struct {
	conditions     []Condition
	orderings      []Ordering
	paging         *Paging
	includes       []string
	includeDeleted bool
}

// All matches every row of the entity type.
func All[T entity.Aggregate]() Specification[T] {
	return Specification[T]{}
}

func (s Specification[T]) Conditions() []Condition {
	out := make([]Condition, len(s.conditions))
	copy(out, s.conditions)
	return out
}

func (s Specification[T]) Orderings() []Ordering {
	out := make([]Ordering, len(s.orderings))
	copy(out, s.orderings)
	return out
}

func (s Specification[T]) Paging() (Paging, bool) {
	if s.paging == nil {
		return Paging{}, false
	}
	return *s.paging, true
}

func (s Specification[T]) Includes() []string {
	out := make([]string, len(s.includes))
	copy(out, s.includes)
	return out
}

// IncludesDeleted reports whether the caller explicitly opted into seeing
// soft-deleted rows.
func (s Specification[T]) IncludesDeleted() bool { return s.includeDeleted }

// IsSatisfiedBy evaluates every condition against a single in-memory
// instance. Ordering, paging and includes play no part here; this is the
// pure predicate used for unit testing without a live store.
func (s Specification[T]) IsSatisfiedBy(e T) bool {
	for _, c := range s.conditions {
		v, ok := e.Field(c.Field)
		if !ok {
			return false
		}
		if !Matches(c.Op, v, c.Value) {
			return false
		}
	}
	return true
}

// Builder accumulates clauses and validates on Build. A zero Builder is
// ready to use.
type Builder[T entity.Aggregate] struct {
	spec Specification[T]
	err  error
}

func NewBuilder[T entity.Aggregate]() *Builder[T] {
	return &Builder[T]{}
}

func (b *Builder[T]) Where(field string, op Operator, value any) *Builder[T] {
	b.spec.conditions = append(b.spec.conditions, Condition{Field: field, Op: op, Value: value})
	return b
}

func (b *Builder[T]) OrderBy(field string) *Builder[T] {
	b.spec.orderings = append(b.spec.orderings, Ordering{Field: field})
	return b
}

func (b *Builder[T]) OrderByDesc(field string) *Builder[T] {
	b.spec.orderings = append(b.spec.orderings, Ordering{Field: field, Descending: true})
	return b
}

func (b *Builder[T]) Page(pageIndex, pageSize int) *Builder[T] {
	if pageIndex < 1 {
		b.err = apperr.Newf(apperr.CodeInvalidArgument, "page index must be >= 1, got %d", pageIndex)
		return b
	}
	if pageSize < 1 {
		b.err = apperr.Newf(apperr.CodeInvalidArgument, "page size must be >= 1, got %d", pageSize)
		return b
	}
	b.spec.paging = &Paging{PageIndex: pageIndex, PageSize: pageSize}
	return b
}

// Include declares a named relation to eagerly materialize. Names are
// validated by the store against its registered relation loaders.
func (b *Builder[T]) Include(relation string) *Builder[T] {
	b.spec.includes = append(b.spec.includes, relation)
	return b
}

func (b *Builder[T]) IncludeDeleted() *Builder[T] {
	b.spec.includeDeleted = true
	return b
}

func (b *Builder[T]) Build() (Specification[T], error) {
	if b.err != nil {
		return Specification[T]{}, b.err
	}
	return b.spec, nil
}

// MustBuild is for hand-written specifications whose clauses are known
// constants. It panics on the validation failures Build reports.
func (b *Builder[T]) MustBuild() Specification[T] {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
