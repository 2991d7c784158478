// Package web assembles the HTTP surface: routing, tenant resolution and
// the cross-cutting middleware stack.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"

	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/internal/infra/web/handler"
	"github.com/stocker-erp/stocker/internal/infra/web/middleware"
	"github.com/stocker-erp/stocker/pkg/logger"
	"github.com/stocker-erp/stocker/pkg/metrics"
)

type RouterDeps struct {
	ServiceName string
	Log         logger.Logger
	Metrics     metrics.Metrics
	Registry    *prometheus.Registry
	RateLimiter *middleware.IPDispatcher
	Health      http.Handler
	Customers   *handler.Customer
	Invoices    *handler.Invoice
}

// NewRouter builds the full mux. Operational endpoints (health, metrics)
// sit outside the tenant-scoped API group: probes carry no tenant header.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(otelchi.Middleware(deps.ServiceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.MetricsWrapper(deps.Metrics))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Handler(deps.Log))
	}

	if deps.Health != nil {
		r.Method(http.MethodGet, "/healthz", deps.Health)
	}
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(tenant.Middleware(deps.Log))

		api.Route("/customers", func(cr chi.Router) {
			cr.Post("/", deps.Customers.CreateCustomer)
			cr.Get("/", deps.Customers.ListCustomers)
			cr.Delete("/{id}", deps.Customers.ArchiveCustomer)
			cr.Post("/{id}/restore", deps.Customers.RestoreCustomer)
		})

		api.Route("/invoices", func(ir chi.Router) {
			ir.Post("/", deps.Invoices.CreateInvoice)
			ir.Get("/{id}", deps.Invoices.GetInvoice)
		})
	})

	return r
}
