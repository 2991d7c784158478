package event

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"

	"github.com/stocker-erp/stocker/pkg/events"
	carrier "github.com/stocker-erp/stocker/pkg/otel"
)

// publisher is the slice of *amqp.Channel the dispatcher needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Dispatcher publishes to RabbitMQ. Trace context rides the message
// headers so consumers continue the same trace.
type Dispatcher struct {
	channel  publisher
	exchange string
}

func NewDispatcher(ch publisher, exchange string) *Dispatcher {
	return &Dispatcher{channel: ch, exchange: exchange}
}

var _ events.EventDispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) Dispatch(ctx context.Context, topic string, event events.Event) error {
	payload, err := json.Marshal(event.GetPayload())
	if err != nil {
		return err
	}
	return d.DispatchRaw(ctx, topic, payload, map[string]string{
		"x-event-type": event.GetName(),
	})
}

func (d *Dispatcher) DispatchRaw(ctx context.Context, topic string, payload []byte, headers map[string]string) error {
	table := make(amqp.Table, len(headers))
	for k, v := range headers {
		table[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier.AMQPHeadersCarrier(table))

	return d.channel.PublishWithContext(
		ctx,
		d.exchange,
		topic,
		false,
		false,
		amqp.Publishing{
			Headers:     table,
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        payload,
		})
}
