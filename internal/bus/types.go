package bus

import "context"

// InboundEvent is the canonical form of a gateway webhook payload after
// normalization. Raw payloads vary across gateway versions; everything
// downstream of the webhook router only ever sees this shape.
type InboundEvent struct {
	ChannelID    string `json:"channel_id"`
	ContactID    string `json:"contact_id"`
	FromOperator bool   `json:"from_operator"` // authored by the channel owner, not the lead
	IsGroup      bool   `json:"is_group"`
	Text         string `json:"text,omitempty"`
	MediaRef     string `json:"media_ref,omitempty"` // URL or gateway media id
	Kind         string `json:"kind"`                // "text", "audio", "image", "video", "document"
}

// Key returns the debounce/tracking key for the event's conversation.
func (e InboundEvent) Key() string {
	return e.ChannelID + "|" + e.ContactID
}

// Event is a server-side event broadcast to operator WebSocket clients.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription.
// Used by the gateway server and the notifier to decouple from MessageBus.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}

// InboundConsumer is the engagement pipeline's view of the bus.
type InboundConsumer interface {
	ConsumeInbound(ctx context.Context) (InboundEvent, bool)
}
