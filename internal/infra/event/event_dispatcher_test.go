package event

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocker-erp/stocker/pkg/events"
)

type capturedPublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []capturedPublish
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, capturedPublish{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestDispatch(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDispatcher(ch, "stocker.events")

	evt := events.New("customer.created", map[string]string{"code": "C-1"})
	require.NoError(t, d.Dispatch(context.Background(), "crm.customers", evt))

	require.Len(t, ch.published, 1)
	p := ch.published[0]
	assert.Equal(t, "stocker.events", p.exchange)
	assert.Equal(t, "crm.customers", p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, "customer.created", p.msg.Headers["x-event-type"])
	assert.JSONEq(t, `{"code":"C-1"}`, string(p.msg.Body))
}

func TestDispatchRaw(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDispatcher(ch, "stocker.events")

	err := d.DispatchRaw(context.Background(), "finance.invoices", []byte(`{"n":1}`), map[string]string{
		"x-event-id": "abc",
	})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	p := ch.published[0]
	assert.Equal(t, "finance.invoices", p.key)
	assert.Equal(t, "abc", p.msg.Headers["x-event-id"])
	assert.Equal(t, `{"n":1}`, string(p.msg.Body))
}
