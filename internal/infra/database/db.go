// Package database is the PostgreSQL implementation of the repository and
// unit-of-work ports. Writes are staged per repository and flushed inside
// one transaction on SaveChanges; specifications translate to SQL so
// filtering, ordering and paging run in the database.
package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"reflect"
	"time"

	_ "github.com/lib/pq"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema. Statements are idempotent, so running it on
// every start is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Open connects and verifies the database before anything depends on it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, so reads follow the
// active transaction when there is one.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Registry binds entity types to their table mappers and relation loaders.
// Populate it during wiring, before the factory hands out units of work.
type Registry struct {
	factories map[reflect.Type]func(u *UnitOfWork) any
	loaders   map[reflect.Type]map[string]any
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[reflect.Type]func(u *UnitOfWork) any),
		loaders:   make(map[reflect.Type]map[string]any),
	}
}

// RegisterMapper makes T persistable through this registry.
func RegisterMapper[T entity.Aggregate](r *Registry, m Mapper[T]) {
	t := typeOf[T]()
	r.factories[t] = func(u *UnitOfWork) any { return newRepository[T](u, m) }
}

// RegisterRelation installs the eager-load hook behind a specification
// include name. The loader receives the already-filtered page of entities
// and the querier of the calling unit of work.
func RegisterRelation[T entity.Aggregate](r *Registry, name string, load func(ctx context.Context, q querier, items []T) error) {
	t := typeOf[T]()
	if r.loaders[t] == nil {
		r.loaders[t] = make(map[string]any)
	}
	r.loaders[t][name] = load
}

func (r *Registry) relationLoader(t reflect.Type, name string) (any, bool) {
	l, ok := r.loaders[t][name]
	return l, ok
}

// Factory builds one unit of work per logical operation, bound to the
// tenant context carried by ctx. A scope without a tenant still gets a
// unit of work so background jobs can reach cross-tenant tables.
type Factory struct {
	db  *sql.DB
	reg *Registry
	log logger.Logger
}

func NewFactory(db *sql.DB, reg *Registry, log logger.Logger) *Factory {
	return &Factory{db: db, reg: reg, log: log}
}

func (f *Factory) New(ctx context.Context) (outbound.UnitOfWork, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		tc = tenant.NewContext()
	}
	return &UnitOfWork{
		db:      f.db,
		reg:     f.reg,
		tenants: tc,
		repos:   make(map[reflect.Type]any),
		log:     f.log,
	}, nil
}

func typeOf[T entity.Aggregate]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
