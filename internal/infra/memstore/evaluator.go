package memstore

import (
	"sort"

	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
)

// sortItems orders in place: the first clause sorts, later clauses break
// ties in declaration order, and the entity id is the implicit final
// tie-break so results are deterministic even without explicit ordering.
func sortItems[T entity.Aggregate](items []T, orders []specification.Ordering) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		for _, o := range orders {
			av, aok := a.Field(o.Field)
			bv, bok := b.Field(o.Field)
			if !aok || !bok {
				continue
			}
			c, ok := specification.Compare(av, bv)
			if !ok || c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return a.GetID().String() < b.GetID().String()
	})
}

// pageSlice applies a validated 1-based page window. A window past the end
// is an empty page, not an error.
func pageSlice[T entity.Aggregate](items []T, p specification.Paging) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
