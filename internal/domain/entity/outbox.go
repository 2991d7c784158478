package entity

import (
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxEvent is an integration event staged in the same unit of work as
// the business write that produced it, so event and state change commit
// atomically. The relay claims pending rows and publishes them.
type OutboxEvent struct {
	Base
	// tenantID is a plain attribute, not tenant ownership: the relay reads
	// outbox rows across all tenants and forwards the id in message headers.
	tenantID    uuid.UUID
	aggregateID uuid.UUID
	eventType   string
	topic       string
	payload     []byte
	status      OutboxStatus
	attempts    int
	lastError   string
	processedAt *time.Time
}

func NewOutboxEvent(tenantID, aggregateID uuid.UUID, eventType, topic string, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		Base:        NewBase(uuid.New()),
		tenantID:    tenantID,
		aggregateID: aggregateID,
		eventType:   eventType,
		topic:       topic,
		payload:     payload,
		status:      OutboxStatusPending,
	}
}

func (e *OutboxEvent) TenantID() uuid.UUID     { return e.tenantID }
func (e *OutboxEvent) AggregateID() uuid.UUID  { return e.aggregateID }
func (e *OutboxEvent) EventType() string       { return e.eventType }
func (e *OutboxEvent) Topic() string           { return e.topic }
func (e *OutboxEvent) Payload() []byte         { return e.payload }
func (e *OutboxEvent) Status() OutboxStatus    { return e.status }
func (e *OutboxEvent) Attempts() int           { return e.attempts }
func (e *OutboxEvent) LastError() string       { return e.lastError }
func (e *OutboxEvent) ProcessedAt() *time.Time { return e.processedAt }

func (e *OutboxEvent) MarkProcessing() {
	e.status = OutboxStatusProcessing
	e.attempts++
	e.Touch("outbox-relay")
}

func (e *OutboxEvent) MarkPublished(at time.Time) {
	e.status = OutboxStatusPublished
	at = at.UTC()
	e.processedAt = &at
	e.Touch("outbox-relay")
}

func (e *OutboxEvent) MarkFailed(cause string) {
	e.status = OutboxStatusFailed
	e.lastError = cause
	e.Touch("outbox-relay")
}

// ResetStuck returns a processing row to pending so the relay can pick it
// up again after a crashed claim.
func (e *OutboxEvent) ResetStuck() {
	if e.status != OutboxStatusProcessing {
		return
	}
	e.status = OutboxStatusPending
	e.Touch("outbox-rescuer")
}

func (e *OutboxEvent) Snapshot() Aggregate {
	cp := *e
	return &cp
}

func (e *OutboxEvent) Field(name string) (any, bool) {
	switch name {
	case "ID":
		return e.GetID(), true
	case "TenantID":
		return e.tenantID, true
	case "AggregateID":
		return e.aggregateID, true
	case "EventType":
		return e.eventType, true
	case "Topic":
		return e.topic, true
	case "Status":
		return string(e.status), true
	case "Attempts":
		return e.attempts, true
	case "CreatedAt":
		return e.CreatedAt(), true
	case "UpdatedAt":
		return e.UpdatedAt(), true
	}
	return nil, false
}

// RehydrateOutboxEvent rebuilds an outbox row from persisted state.
func RehydrateOutboxEvent(id, tenantID, aggregateID uuid.UUID, eventType, topic string,
	payload []byte, status OutboxStatus, attempts int, lastError string,
	processedAt *time.Time, createdAt, updatedAt time.Time) *OutboxEvent {

	e := &OutboxEvent{
		aggregateID: aggregateID,
		eventType:   eventType,
		topic:       topic,
		payload:     payload,
		status:      status,
		attempts:    attempts,
		lastError:   lastError,
		processedAt: processedAt,
	}
	e.tenantID = tenantID
	e.Rehydrate(id, createdAt, updatedAt, "", "")
	return e
}
