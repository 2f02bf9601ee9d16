package mq

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrQueueFull is returned when an inline channel buffer is exhausted.
var ErrQueueFull = errors.New("mq: inline queue full")

const defaultInlineBuffer = 64

// InlineBackend delivers messages to subscribers in the same process over
// buffered channels. Publish never blocks; failed handlers drop the message.
type InlineBackend struct {
	mu     sync.Mutex
	queues map[string]chan Message
	buffer int
	done   chan struct{}
	once   sync.Once
}

// NewInlineBackend constructs an in-process backend with the given
// per-channel buffer size.
func NewInlineBackend(buffer int) *InlineBackend {
	if buffer <= 0 {
		buffer = defaultInlineBuffer
	}
	return &InlineBackend{
		queues: make(map[string]chan Message),
		buffer: buffer,
		done:   make(chan struct{}),
	}
}

// Publish enqueues a message on the named channel.
func (b *InlineBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("inline channel is required")
	}
	select {
	case <-b.done:
		return "", ErrClosed
	default:
	}

	msg := Message{ID: newMessageID(), Data: data, Attributes: attrs}
	select {
	case b.queue(channel) <- msg:
		return msg.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return "", ErrQueueFull
	}
}

// Subscribe consumes messages until ctx is cancelled or the backend closes.
func (b *InlineBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("inline channel is required")
	}
	q := b.queue(channel)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case msg := <-q:
			_ = handler(ctx, msg)
		}
	}
}

// Close stops all subscribers. Pending messages are discarded.
func (b *InlineBackend) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}

func (b *InlineBackend) queue(channel string) chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[channel]
	if !ok {
		q = make(chan Message, b.buffer)
		b.queues[channel] = q
	}
	return q
}
