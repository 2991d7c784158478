package specification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

func customer(t *testing.T, code, name string) *entity.Customer {
	t.Helper()
	c, err := entity.NewCustomer(code, name, "")
	require.NoError(t, err)
	return c
}

func TestBuilder_PagingValidation(t *testing.T) {
	tests := []struct {
		name      string
		pageIndex int
		pageSize  int
		wantErr   bool
	}{
		{"Valid first page", 1, 20, false},
		{"Zero page index", 0, 20, true},
		{"Negative page index", -1, 20, true},
		{"Zero page size", 1, 0, true},
		{"Negative page size", 3, -5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder[*entity.Customer]().Page(tt.pageIndex, tt.pageSize).Build()

			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, apperr.IsInvalidArgument(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSpecification_IsSatisfiedBy(t *testing.T) {
	acme := customer(t, "CUST-001", "Acme Ltd")

	tests := []struct {
		name  string
		build func(*Builder[*entity.Customer]) *Builder[*entity.Customer]
		want  bool
	}{
		{"Empty spec matches everything", func(b *Builder[*entity.Customer]) *Builder[*entity.Customer] {
			return b
		}, true},
		{"Eq on matching code", func(b *Builder[*entity.Customer]) *Builder[*entity.Customer] {
			return b.Where("Code", Eq, "CUST-001")
		}, true},
		{"Eq on wrong code", func(b *Builder[*entity.Customer]) *Builder[*entity.Customer] {
			return b.Where("Code", Eq, "CUST-002")
		}, false},
		{"AND-combined conditions all must pass", func(b *Builder[*entity.Customer]) *Builder[*entity.Customer] {
			return b.Where("Code", Eq, "CUST-001").Where("Name", Contains, "Acme")
		}, true},
		{"AND-combined conditions with one failing", func(b *Builder[*entity.Customer]) *Builder[*entity.Customer] {
			return b.Where("Code", Eq, "CUST-001").Where("Name", Contains, "Globex")
		}, false},
		{"In operator", func(b *Builder[*entity.Customer]) *Builder[*entity.Customer] {
			return b.Where("Code", In, []string{"CUST-009", "CUST-001"})
		}, true},
		{"Unknown field fails closed", func(b *Builder[*entity.Customer]) *Builder[*entity.Customer] {
			return b.Where("Nope", Eq, 1)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.build(NewBuilder[*entity.Customer]()).Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.IsSatisfiedBy(acme))
		})
	}
}

func TestSpecification_AccessorsCopy(t *testing.T) {
	spec := NewBuilder[*entity.Customer]().
		Where("Code", Eq, "CUST-001").
		OrderBy("Name").
		OrderByDesc("CreatedAt").
		MustBuild()

	conds := spec.Conditions()
	conds[0].Value = "mutated"
	orders := spec.Orderings()
	orders[0].Field = "mutated"

	assert.Equal(t, "CUST-001", spec.Conditions()[0].Value, "specification stays immutable")
	assert.Equal(t, "Name", spec.Orderings()[0].Field)
	assert.False(t, spec.Orderings()[0].Descending)
	assert.True(t, spec.Orderings()[1].Descending)
}

func TestMatches_Operators(t *testing.T) {
	tests := []struct {
		name  string
		op    Operator
		field any
		want  any
		match bool
	}{
		{"Gt on int64", Gt, int64(5), int64(3), true},
		{"Gte equal", Gte, 5, 5, true},
		{"Lt on float", Lt, 1.5, 2.0, true},
		{"Lte fails when greater", Lte, 3, 2, false},
		{"Contains substring", Contains, "Acme Ltd", "cme", true},
		{"Contains on non-string fails closed", Contains, 42, "4", false},
		{"Mixed int widths compare", Eq, int32(7), int64(7), true},
		{"Incomparable pair fails closed", Gt, "a", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, Matches(tt.op, tt.field, tt.want))
		})
	}
}
