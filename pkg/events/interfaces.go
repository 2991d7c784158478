package events

import (
	"context"
	"time"
)

type Event interface {
	GetName() string
	GetDateTime() time.Time
	GetPayload() interface{}
}

// EventDispatcher publishes events to the broker. DispatchRaw is the path
// for pre-serialized payloads replayed from the outbox.
type EventDispatcher interface {
	Dispatch(ctx context.Context, topic string, event Event) error
	DispatchRaw(ctx context.Context, topic string, payload []byte, headers map[string]string) error
}

// GenericEvent is the plain carrier used when no richer event type exists.
type GenericEvent struct {
	name     string
	dateTime time.Time
	payload  interface{}
}

func New(name string, payload interface{}) *GenericEvent {
	return &GenericEvent{name: name, dateTime: time.Now().UTC(), payload: payload}
}

func (e *GenericEvent) GetName() string         { return e.name }
func (e *GenericEvent) GetDateTime() time.Time  { return e.dateTime }
func (e *GenericEvent) GetPayload() interface{} { return e.payload }
