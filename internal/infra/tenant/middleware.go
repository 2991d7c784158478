package tenant

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/pkg/logger"
)

// HeaderName carries the tenant identity on HTTP entry points. A gateway
// normally stamps it after authenticating the caller.
const HeaderName = "X-Tenant-ID"

// Middleware resolves the tenant once per request and stores the populated
// context on the request scope. Requests without a parseable tenant id are
// rejected before any handler runs.
func Middleware(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderName)
			id, err := uuid.Parse(raw)
			if err != nil {
				log.Warn(r.Context(), "request rejected: unresolved tenant",
					logger.String("path", r.URL.Path),
					logger.String("tenant_header", raw),
				)
				http.Error(w, "missing or invalid "+HeaderName+" header", http.StatusBadRequest)
				return
			}

			tc := NewContext()
			if err := tc.SetCurrentTenant(id); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
		})
	}
}
