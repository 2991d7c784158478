package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/pkg/logger"
	carrier "github.com/stocker-erp/stocker/pkg/otel"
)

// Consumer pulls messages from one queue and hands each to the configured
// handler. The tenant identity and trace context arrive in headers; the
// handler runs in a scope already carrying both.
type Consumer struct {
	conn     *amqp.Connection
	exchange string
	log      logger.Logger
}

func NewConsumer(conn *amqp.Connection, exchange string, log logger.Logger) *Consumer {
	return &Consumer{conn: conn, exchange: exchange, log: log}
}

func (c *Consumer) Start(ctx context.Context, queueName string, handle MessageHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := c.setupTopology(ch, queueName); err != nil {
		return fmt.Errorf("configure topology: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.log.Info(ctx, "consuming queue", logger.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", queueName)
			}
			c.handleDelivery(ctx, queueName, d, handle)
		}
	}
}

func (c *Consumer) handleDelivery(parent context.Context, queueName string, d amqp.Delivery, handle MessageHandler) {
	msgCtx := otel.GetTextMapPropagator().Extract(parent, carrier.AMQPHeadersCarrier(d.Headers))

	tracer := otel.GetTracerProvider().Tracer("worker-tracer")
	msgCtx, span := tracer.Start(msgCtx, "ProcessMessage", trace.WithAttributes(
		attribute.String("queue.name", queueName),
		attribute.String("messaging.message_id", d.MessageId),
	))
	defer span.End()

	msgCtx, err := c.withTenantScope(msgCtx, d.Headers)
	if err != nil {
		c.log.Error(msgCtx, "resolve tenant from headers", logger.WithError(err))
		span.RecordError(err)
		_ = d.Nack(false, false)
		return
	}

	if err := handle(msgCtx, d.Body, d.Headers); err != nil {
		c.log.Warn(msgCtx, "message handling failed, requeuing",
			logger.String("queue", queueName),
			logger.WithError(err))
		span.RecordError(err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// withTenantScope builds the tenant scope from the x-tenant-id header.
// Messages without one keep the bare context; tenant-scoped repositories
// then refuse to run, which is the wanted failure mode.
func (c *Consumer) withTenantScope(ctx context.Context, headers amqp.Table) (context.Context, error) {
	raw, ok := headers["x-tenant-id"]
	if !ok {
		return ctx, nil
	}
	s, ok := raw.(string)
	if !ok {
		return ctx, fmt.Errorf("x-tenant-id header is not a string")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return ctx, fmt.Errorf("parse x-tenant-id: %w", err)
	}
	tc, err := tenant.NewBackground(id, "", "")
	if err != nil {
		return ctx, err
	}
	return tenant.WithContext(ctx, tc), nil
}

func (c *Consumer) setupTopology(ch *amqp.Channel, queueName string) error {
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(queueName, "#", c.exchange, false, nil)
}
