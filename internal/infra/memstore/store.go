// Package memstore is the in-memory implementation of the repository and
// unit-of-work ports. It mirrors the relational store's contract (staged
// writes, atomic SaveChanges, explicit transactions with read-your-writes)
// against plain maps, which makes it the backing store for tests and for
// embedded single-node deployments.
package memstore

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/pkg/apperr"
	"github.com/stocker-erp/stocker/pkg/logger"
)

// Store owns the base tables, one per registered entity type. All access
// goes through a unit of work; the store itself only guards the maps.
type Store struct {
	mu        sync.RWMutex
	tables    map[reflect.Type]map[uuid.UUID]any
	factories map[reflect.Type]func(u *UnitOfWork) any
	loaders   map[reflect.Type]map[string]any
	log       logger.Logger
	closed    bool
}

func NewStore(log logger.Logger) *Store {
	return &Store{
		tables:    make(map[reflect.Type]map[uuid.UUID]any),
		factories: make(map[reflect.Type]func(u *UnitOfWork) any),
		loaders:   make(map[reflect.Type]map[string]any),
		log:       log,
	}
}

// RegisterEntity creates the table for T and the factory that units of
// work use to build T's repository. Call during wiring, before serving.
func RegisterEntity[T entity.Aggregate](s *Store) {
	t := typeOf[T]()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t] = make(map[uuid.UUID]any)
	s.factories[t] = func(u *UnitOfWork) any { return newRepository[T](u) }
}

// RegisterRelation installs the eager-load hook behind a specification
// include name. The loader receives the already-filtered page of entities.
func RegisterRelation[T entity.Aggregate](s *Store, name string, load func(ctx context.Context, items []T) error) {
	t := typeOf[T]()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaders[t] == nil {
		s.loaders[t] = make(map[string]any)
	}
	s.loaders[t][name] = load
}

func (s *Store) relationLoader(t reflect.Type, name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.loaders[t][name]
	return l, ok
}

func (s *Store) registered(t reflect.Type) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[t]
	return ok
}

// Close marks the store closed; subsequent units of work are refused.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Factory builds one unit of work per logical operation, bound to the
// tenant context carried by ctx. A scope without a tenant still gets a
// unit of work: repositories over tenant-owned entities fail on use, while
// cross-tenant tables (the outbox) stay reachable for background jobs.
type Factory struct {
	store *Store
}

func NewFactory(store *Store) *Factory { return &Factory{store: store} }

func (f *Factory) New(ctx context.Context) (outbound.UnitOfWork, error) {
	f.store.mu.RLock()
	closed := f.store.closed
	f.store.mu.RUnlock()
	if closed {
		return nil, apperr.New(apperr.CodeInvalidOperation, "store is closed")
	}

	tc, err := tenant.FromContext(ctx)
	if err != nil {
		tc = tenant.NewContext()
	}
	return &UnitOfWork{
		store:   f.store,
		tenants: tc,
		repos:   make(map[reflect.Type]any),
	}, nil
}

func typeOf[T entity.Aggregate]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
