package metrics

import "time"

type Metrics interface {
	// Business
	RecordCustomerCreated(status string)
	RecordInvoiceIssued(status string)
	RecordSequenceIssued(series string)
	RecordUseCaseExecution(useCaseName string, success bool, duration time.Duration)

	// Infrastructure
	ObserveHTTPRequestDuration(method, path, statusCode string, duration float64)
	ObserveSaveBatch(store string, success bool, duration time.Duration)

	// Performance and Resilience
	IncCacheHit(cacheType string)
	IncCacheMiss(cacheType string)
	IncOutboxEventsProcessed(status string)
	IncEventsDropped(reason string)
}
