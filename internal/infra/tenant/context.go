// Package tenant carries the ambient tenant identity for one request or
// message scope. The HTTP pipeline resolves it from the request; workers
// set it explicitly before tenant-scoped work. Once set it is stable for
// the rest of the scope.
package tenant

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/pkg/apperr"
)

// Context is the scope-local implementation of the tenant context ports.
// The mutex guards the populate-once window; readers after that see a
// stable value.
type Context struct {
	mu       sync.RWMutex
	set      bool
	tenantID uuid.UUID
	name     string
	connStr  string
}

var _ outbound.MutableTenantContext = (*Context)(nil)

func NewContext() *Context { return &Context{} }

// NewBackground builds a pre-populated context for worker and consumer
// code paths with no inbound request.
func NewBackground(id uuid.UUID, name, connectionString string) (*Context, error) {
	c := &Context{}
	if err := c.SetTenantInfo(id, name, connectionString); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) CurrentTenantID() (uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return uuid.Nil, outbound.ErrTenantNotResolved
	}
	return c.tenantID, nil
}

func (c *Context) CurrentTenantName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Context) ConnectionString() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connStr
}

func (c *Context) SetCurrentTenant(id uuid.UUID) error {
	return c.SetTenantInfo(id, "", "")
}

func (c *Context) SetTenantInfo(id uuid.UUID, name, connectionString string) error {
	if id == uuid.Nil {
		return apperr.New(apperr.CodeInvalidArgument, "tenant id must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set && c.tenantID != id {
		return apperr.New(apperr.CodeInvalidOperation, "tenant is already resolved for this scope")
	}
	c.set = true
	c.tenantID = id
	if name != "" {
		c.name = name
	}
	if connectionString != "" {
		c.connStr = connectionString
	}
	return nil
}

type ctxKey struct{}

// WithContext attaches a tenant context to ctx for the rest of the scope.
func WithContext(ctx context.Context, tc outbound.TenantContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext fails when the scope carries no tenant; callers never get a
// silent wildcard scope.
func FromContext(ctx context.Context) (outbound.TenantContext, error) {
	tc, ok := ctx.Value(ctxKey{}).(outbound.TenantContext)
	if !ok {
		return nil, outbound.ErrTenantNotResolved
	}
	return tc, nil
}
