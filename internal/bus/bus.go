// Package bus is the in-process message bus connecting the webhook router,
// the engagement pipeline, and operator event subscribers. One bus is
// constructed per process and passed by reference; there are no ambient
// globals.
package bus

import (
	"context"
	"log/slog"
	"sync"
)

const inboundBuffer = 256

// MessageBus routes inbound events to the engagement pipeline and fans out
// operator events to WebSocket subscribers.
type MessageBus struct {
	inbound chan InboundEvent

	mu          sync.RWMutex
	subscribers map[string]EventHandler
}

// New creates a MessageBus with a bounded inbound queue.
func New() *MessageBus {
	return &MessageBus{
		inbound:     make(chan InboundEvent, inboundBuffer),
		subscribers: make(map[string]EventHandler),
	}
}

// PublishInbound enqueues a normalized inbound event. If the queue is full
// the event is dropped; the webhook router treats this like any other parse
// failure (silent drop, logged).
func (b *MessageBus) PublishInbound(ev InboundEvent) {
	select {
	case b.inbound <- ev:
	default:
		slog.Warn("inbound queue full, dropping event",
			"channel_id", ev.ChannelID, "contact_id", ev.ContactID)
	}
}

// ConsumeInbound blocks until an inbound event is available or ctx is done.
// Returns ok=false on shutdown.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundEvent, bool) {
	select {
	case <-ctx.Done():
		return InboundEvent{}, false
	case ev := <-b.inbound:
		return ev, true
	}
}

// Subscribe registers an event handler under the given id.
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = handler
}

// Unsubscribe removes a previously registered handler.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Broadcast delivers an event to all subscribers. Handlers run on the
// caller's goroutine and must not block.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
