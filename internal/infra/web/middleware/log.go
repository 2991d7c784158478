package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/pkg/logger"
)

// RequestLogger emits one structured line per request. The tenant id is
// included when the request carries one, so per-tenant traffic can be
// filtered downstream.
func RequestLogger(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Any("latency", time.Since(start).String()),
			}
			if tc, err := tenant.FromContext(r.Context()); err == nil {
				if id, err := tc.CurrentTenantID(); err == nil {
					fields = append(fields, logger.String("tenant_id", id.String()))
				}
			}
			log.Info(r.Context(), "http request processed", fields...)
		})
	}
}
