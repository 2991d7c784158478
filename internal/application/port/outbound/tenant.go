package outbound

import (
	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/pkg/apperr"
)

// TenantContext is the ambient, request-scoped identity of the calling
// tenant. The hosting pipeline populates it once per request; background
// consumers populate it explicitly before tenant-scoped work. After that
// it is read-only for the remainder of the scope.
type TenantContext interface {
	// CurrentTenantID fails with ErrTenantNotResolved when no tenant is
	// set. Repositories never fall back to an unfiltered query.
	CurrentTenantID() (uuid.UUID, error)
	CurrentTenantName() string

	// ConnectionString is the tenant's resolved database DSN, empty when
	// the shared default applies.
	ConnectionString() string
}

// MutableTenantContext is the write side used by the request pipeline and
// by background entry points; business code only sees TenantContext.
type MutableTenantContext interface {
	TenantContext

	SetCurrentTenant(id uuid.UUID) error

	// SetTenantInfo is the background variant for queue consumers and
	// scheduled jobs with no inbound request.
	SetTenantInfo(id uuid.UUID, name, connectionString string) error
}

var ErrTenantNotResolved = apperr.New(apperr.CodeInvalidOperation, "tenant is not resolved for this scope")
