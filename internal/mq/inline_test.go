package mq

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikistore/cosbackend/config"
)

func TestInlinePublishSubscribe(t *testing.T) {
	q := New(NewInlineBackend(4))
	t.Cleanup(func() { _ = q.Close() })
	require.True(t, q.InProcess())

	id, err := q.Publish(context.Background(), "cdn-purge", []byte("payload"), map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	go func() {
		_ = q.Subscribe(ctx, "cdn-purge", func(_ context.Context, msg Message) error {
			received <- msg
			return nil
		})
	}()

	select {
	case msg := <-received:
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, []byte("payload"), msg.Data)
		assert.Equal(t, "v", msg.Attributes["k"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestInlinePublishNeverBlocks(t *testing.T) {
	b := NewInlineBackend(1)
	_, err := b.Publish(context.Background(), "c", []byte("1"), nil)
	require.NoError(t, err)

	_, err = b.Publish(context.Background(), "c", []byte("2"), nil)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestInlineClose(t *testing.T) {
	b := NewInlineBackend(1)

	done := make(chan error, 1)
	go func() {
		done <- b.Subscribe(context.Background(), "c", func(context.Context, Message) error { return nil })
	}()

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}

	_, err := b.Publish(context.Background(), "c", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInlineRequiresChannel(t *testing.T) {
	b := NewInlineBackend(0)
	_, err := b.Publish(context.Background(), " ", nil, nil)
	assert.Error(t, err)
	assert.Error(t, b.Subscribe(context.Background(), "", nil))
}

func TestOpenSelectsBackend(t *testing.T) {
	q, err := Open(context.Background(), config.Config{Queue: config.QueueConfig{Provider: config.QueueInline}})
	require.NoError(t, err)
	assert.True(t, q.InProcess())

	_, err = Open(context.Background(), config.Config{Queue: config.QueueConfig{Provider: "kafka"}})
	assert.ErrorContains(t, err, "kafka")

	_, err = Open(context.Background(), config.Config{Queue: config.QueueConfig{Provider: config.QueueRabbitMQ}})
	assert.ErrorContains(t, err, "rabbitmq url is required")
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))
	attrs := headersToAttributes(map[string]any{"a": "x", "b": []byte("y"), "c": 3})
	assert.Equal(t, map[string]string{"a": "x", "b": "y", "c": "3"}, attrs)
}

func TestPubSubNaming(t *testing.T) {
	assert.Equal(t, "-sub", subscriptionSuffix(""))
	assert.Equal(t, "-workers", subscriptionSuffix("-workers"))
	assert.Equal(t, "cdn-purge-sub", subscriptionName("cdn-purge", "-sub"))
	assert.Equal(t, "cdn-purge", subscriptionName("cdn-purge", ""))

	msg := fromPubSub(&pubsub.Message{ID: "m1", Data: []byte("x"), Attributes: map[string]string{AttrContentType: "application/json"}})
	assert.Equal(t, Message{ID: "m1", Data: []byte("x"), Attributes: map[string]string{AttrContentType: "application/json"}}, msg)
}

func TestRabbitMQPublishingCarriesContentType(t *testing.T) {
	p := toPublishing([]byte("{}"), map[string]string{AttrContentType: "application/json", "trace": "t1"}, true)
	assert.Equal(t, "application/json", p.ContentType)
	assert.Equal(t, amqp.Persistent, p.DeliveryMode)
	assert.Equal(t, amqp.Table{"trace": "t1"}, p.Headers)
	assert.NotEmpty(t, p.MessageId)

	p = toPublishing(nil, nil, false)
	assert.Equal(t, "application/octet-stream", p.ContentType)
	assert.Equal(t, amqp.Transient, p.DeliveryMode)

	msg := fromDelivery(amqp.Delivery{MessageId: "m1", ContentType: "application/json", Body: []byte("{}")})
	assert.Equal(t, Message{ID: "m1", Data: []byte("{}"), Attributes: map[string]string{AttrContentType: "application/json"}}, msg)
}
