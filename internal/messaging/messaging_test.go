package messaging

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopClient(t *testing.T) {
	t.Parallel()

	client := NewNoop("orders.placed")
	assert.False(t, client.Enabled())
	assert.Equal(t, "orders.placed", client.Topic())
	require.NoError(t, client.Publish(context.Background(), []byte("k"), []byte("v")))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := client.Consume(ctx, func(context.Context, Message) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFromKafkaCopiesPayload(t *testing.T) {
	t.Parallel()

	raw := kafka.Message{
		Topic:   "orders.placed",
		Key:     []byte("tenant-1"),
		Value:   []byte(`{"order_id":"x"}`),
		Offset:  42,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	}
	msg := fromKafka(raw)
	raw.Value[0] = '!'

	assert.Equal(t, "orders.placed", msg.Topic)
	assert.Equal(t, `{"order_id":"x"}`, string(msg.Value))
	assert.Equal(t, int64(42), msg.Offset)
	assert.Equal(t, "application/json", msg.Headers["content-type"])
}

func TestFromDelivery(t *testing.T) {
	t.Parallel()

	msg := fromDelivery(amqp.Delivery{
		RoutingKey: "orders.placed",
		MessageId:  "tenant-1",
		Body:       []byte("{}"),
		Headers:    amqp.Table{"attempt": int32(2)},
	})

	assert.Equal(t, "orders.placed", msg.Topic)
	assert.Equal(t, "tenant-1", string(msg.Key))
	assert.Equal(t, "2", msg.Headers["attempt"])
}
