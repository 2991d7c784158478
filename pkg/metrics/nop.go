package metrics

import "time"

// Nop discards every observation. Useful in tests and tools.
type Nop struct{}

var _ Metrics = Nop{}

func (Nop) RecordCustomerCreated(string)                               {}
func (Nop) RecordInvoiceIssued(string)                                 {}
func (Nop) RecordSequenceIssued(string)                                {}
func (Nop) RecordUseCaseExecution(string, bool, time.Duration)         {}
func (Nop) ObserveHTTPRequestDuration(string, string, string, float64) {}
func (Nop) ObserveSaveBatch(string, bool, time.Duration)               {}
func (Nop) IncCacheHit(string)                                         {}
func (Nop) IncCacheMiss(string)                                        {}
func (Nop) IncOutboxEventsProcessed(string)                            {}
func (Nop) IncEventsDropped(string)                                    {}
