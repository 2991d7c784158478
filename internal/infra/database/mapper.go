package database

import (
	"github.com/stocker-erp/stocker/internal/domain/entity"
)

// RowScanner is the common surface of *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Mapper translates one entity type to and from its table. Columns and
// Values must agree on order; the id column comes first.
type Mapper[T entity.Aggregate] interface {
	Table() string
	Columns() []string
	Values(e T) []any
	Scan(row RowScanner) (T, error)
	// Column maps a specification field name to its column. Unknown
	// fields return false and fail the query before it reaches the
	// database.
	Column(field string) (string, bool)
}
