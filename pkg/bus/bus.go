// Package bus carries replies from the per-platform dispatchers to the
// channel manager. Webhooks are handled inline, so only the outbound
// direction exists: dispatchers publish through channels.Outbox and
// channels.Manager.Run delivers each message to the channel it names.
// Closing the bus stops delivery, and messages still queued may be dropped.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed MessageBus.
var ErrBusClosed = errors.New("message bus closed")

const defaultBuffer = 100

// MessageBus queues outbound replies between the dispatchers and the channel
// manager that delivers them.
type MessageBus struct {
	outbound chan OutboundMessage
	done     chan struct{}
	closed   atomic.Bool
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		outbound: make(chan OutboundMessage, defaultBuffer),
		done:     make(chan struct{}),
	}
}

// PublishOutbound queues msg, blocking while the buffer is full. It fails
// with ErrBusClosed once Close has been called.
func (mb *MessageBus) PublishOutbound(ctx context.Context, msg OutboundMessage) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case mb.outbound <- msg:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscribeOutbound waits for the next reply. ok is false after Close or when
// ctx ends, which is the manager's signal to stop.
func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg, ok := <-mb.outbound:
		return msg, ok
	case <-mb.done:
		return OutboundMessage{}, false
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Pending returns the number of queued messages.
func (mb *MessageBus) Pending() int {
	return len(mb.outbound)
}

func (mb *MessageBus) Close() {
	if mb.closed.CompareAndSwap(false, true) {
		close(mb.done)
	}
}
