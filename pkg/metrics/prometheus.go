package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Prometheus struct {
	customerCreated *prometheus.CounterVec
	invoiceIssued   *prometheus.CounterVec
	sequenceIssued  *prometheus.CounterVec
	useCaseTotal    *prometheus.CounterVec
	useCaseDuration *prometheus.HistogramVec
	httpDuration    *prometheus.HistogramVec
	saveBatches     *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	outboxEvents    *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
}

func NewPrometheusMetrics(reg prometheus.Registerer, serviceName string) *Prometheus {
	m := &Prometheus{
		customerCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stocker_customer_created_total",
			Help:        "Total customers created.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"status"}),
		invoiceIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stocker_invoice_issued_total",
			Help:        "Total invoices issued.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"status"}),
		sequenceIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stocker_sequence_numbers_issued_total",
			Help:        "Total document numbers issued per series.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"series"}),
		useCaseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "app_usecase_total",
			Help:        "Total number of use case executions.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"use_case", "status"}),
		useCaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "app_usecase_duration_seconds",
			Help:        "Use case execution latency.",
			Buckets:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"use_case", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "app_http_duration_seconds",
			Help:        "Duration of HTTP requests.",
			Buckets:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"method", "path", "status_code"}),
		saveBatches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "app_save_batch_duration_seconds",
			Help:        "Duration of unit of work save batches.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"store", "status"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "app_cache_hits_total",
			Help:        "Total cache hits.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"cache_type"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "app_cache_misses_total",
			Help:        "Total cache misses.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"cache_type"}),
		outboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "app_outbox_events_processed_total",
			Help:        "Total outbox events processed.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"status"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "app_events_dropped_total",
			Help:        "Total inbound events dropped before handling.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.customerCreated,
		m.invoiceIssued,
		m.sequenceIssued,
		m.useCaseTotal,
		m.useCaseDuration,
		m.httpDuration,
		m.saveBatches,
		m.cacheHits,
		m.cacheMisses,
		m.outboxEvents,
		m.eventsDropped,
	)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

func (p *Prometheus) RecordCustomerCreated(status string) {
	p.customerCreated.WithLabelValues(status).Inc()
}

func (p *Prometheus) RecordInvoiceIssued(status string) {
	p.invoiceIssued.WithLabelValues(status).Inc()
}

func (p *Prometheus) RecordSequenceIssued(series string) {
	p.sequenceIssued.WithLabelValues(series).Inc()
}

func (p *Prometheus) RecordUseCaseExecution(useCase string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	p.useCaseTotal.WithLabelValues(useCase, status).Inc()
	p.useCaseDuration.WithLabelValues(useCase, status).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveHTTPRequestDuration(method, path, code string, duration float64) {
	p.httpDuration.WithLabelValues(method, path, code).Observe(duration)
}

func (p *Prometheus) ObserveSaveBatch(store string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	p.saveBatches.WithLabelValues(store, status).Observe(duration.Seconds())
}

func (p *Prometheus) IncCacheHit(cacheType string) {
	p.cacheHits.WithLabelValues(cacheType).Inc()
}

func (p *Prometheus) IncCacheMiss(cacheType string) {
	p.cacheMisses.WithLabelValues(cacheType).Inc()
}

func (p *Prometheus) IncOutboxEventsProcessed(status string) {
	p.outboxEvents.WithLabelValues(status).Inc()
}

func (p *Prometheus) IncEventsDropped(reason string) {
	p.eventsDropped.WithLabelValues(reason).Inc()
}
