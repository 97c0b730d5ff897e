package pubsub

import (
	"context"
)

// Message is the envelope passed between components on the bus.
// It is intentionally small: routing lives in Topic, identity in Sender,
// and everything else travels as an opaque payload.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g. "chat.message.inbound").
	Topic string
	// Sender identifies the user or component that produced the message.
	Sender string
	// Payload contains the raw message data, usually JSON.
	Payload []byte
	// Metadata carries arbitrary key-value context (timestamps, connection IDs).
	Metadata map[string]string
}

// Handler is the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher is the contract for sending messages onto the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber is the contract for receiving messages from the bus.
type Subscriber interface {
	// Subscribe starts listening on the given topic, processing messages
	// with the handler. The subscription runs until ctx is canceled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// Bus combines both halves of the pub/sub contract. The in-memory
// watermill bridge satisfies it with a single value.
type Bus interface {
	Publisher
	Subscriber
}
