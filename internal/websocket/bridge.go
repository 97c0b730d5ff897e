package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"parley/internal/pubsub"
	"parley/internal/topics"
)

// Sink is one attached connection from the bridge's point of view. The
// data endpoint and the HTML chat sessions both implement it.
type Sink interface {
	// ConnID uniquely identifies the connection.
	ConnID() string
	// User returns the username the connection is registered under.
	// Empty until a register frame (or login identity) names it.
	User() string
	// Deliver enqueues an outbound payload. Implementations must not
	// block; a full queue drops the payload.
	Deliver(payload []byte)
}

type directPayload struct {
	connID  string
	payload []byte
}

// Bridge routes outbound wire frames from the pub/sub bus to every
// attached connection, and publishes inbound frames onto the bus. All
// sink bookkeeping happens on the Run goroutine; the channels are the
// only way in.
type Bridge struct {
	publisher pubsub.Publisher
	whitelist *clientWhitelist

	sinks map[string]Sink // connID -> sink

	// live mirrors the keys of sinks for readers outside the Run
	// goroutine. The roster's cleanup pass checks it.
	liveMu sync.RWMutex
	live   map[string]struct{}

	attach    chan Sink
	detach    chan Sink
	broadcast chan []byte
	direct    chan directPayload
}

// NewBridge initializes a Bridge. Only register and message frames are
// accepted from clients; everything else is dropped with a warning.
func NewBridge(pub pubsub.Publisher) *Bridge {
	return &Bridge{
		publisher: pub,
		whitelist: NewClientWhitelist(FrameRegister, FrameMessage),
		sinks:     make(map[string]Sink),
		live:      make(map[string]struct{}),
		attach:    make(chan Sink),
		detach:    make(chan Sink),
		broadcast: make(chan []byte, 256),
		direct:    make(chan directPayload, 256),
	}
}

// Run starts the main bridge goroutine for sink lifecycle and routing.
// It returns when ctx is canceled.
func (b *Bridge) Run(ctx context.Context) {
	slog.Info("WebSocket bridge runner started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("WebSocket bridge runner stopped")
			return

		case s := <-b.attach:
			b.sinks[s.ConnID()] = s
			b.liveMu.Lock()
			b.live[s.ConnID()] = struct{}{}
			b.liveMu.Unlock()
			slog.Info("Connection attached to bridge", "connID", s.ConnID(), "user", s.User())
			b.publishLifecycle(topics.ClientConnected, s, "")

		case s := <-b.detach:
			if _, ok := b.sinks[s.ConnID()]; ok {
				delete(b.sinks, s.ConnID())
				b.liveMu.Lock()
				delete(b.live, s.ConnID())
				b.liveMu.Unlock()
				slog.Info("Connection detached from bridge", "connID", s.ConnID(), "user", s.User())
				b.publishLifecycle(topics.ClientDisconnected, s, "connection closed")
			}

		case payload := <-b.broadcast:
			for _, s := range b.sinks {
				s.Deliver(payload)
			}

		case msg := <-b.direct:
			if s, ok := b.sinks[msg.connID]; ok {
				s.Deliver(msg.payload)
			}
		}
	}
}

// Attach registers a sink with the bridge and announces it on the bus.
func (b *Bridge) Attach(s Sink) {
	b.attach <- s
}

// Detach removes a sink. Safe to call for a sink that was never attached.
func (b *Bridge) Detach(s Sink) {
	b.detach <- s
}

// Broadcast queues a payload for every attached connection.
func (b *Bridge) Broadcast(payload []byte) {
	select {
	case b.broadcast <- payload:
	default:
		slog.Warn("Bridge broadcast queue full, dropping payload")
	}
}

// SendDirect queues a payload for a single connection.
func (b *Bridge) SendDirect(connID string, payload []byte) {
	select {
	case b.direct <- directPayload{connID: connID, payload: payload}:
	default:
		slog.Warn("Bridge direct queue full, dropping payload", "connID", connID)
	}
}

// Connected reports whether a connection is currently attached. Clients
// register once per connection, so presence cleanup uses this instead of
// register recency to decide what is actually gone.
func (b *Bridge) Connected(connID string) bool {
	b.liveMu.RLock()
	defer b.liveMu.RUnlock()
	_, ok := b.live[connID]
	return ok
}

// AttachBus subscribes the bridge to the outbound frame topics so that
// modules can publish frames without holding a reference to it.
func (b *Bridge) AttachBus(ctx context.Context, sub pubsub.Subscriber) error {
	if err := sub.Subscribe(ctx, topics.FrameBroadcast, func(ctx context.Context, msg pubsub.Message) error {
		b.Broadcast(msg.Payload)
		return nil
	}); err != nil {
		return err
	}
	return sub.Subscribe(ctx, topics.FrameDirect, func(ctx context.Context, msg pubsub.Message) error {
		recipient := msg.Metadata[topics.MetaRecipient]
		if recipient == "" {
			slog.Warn("Direct frame without recipient, dropping")
			return nil
		}
		b.SendDirect(recipient, msg.Payload)
		return nil
	})
}

// HandleInbound decodes a raw payload received from a client and routes
// it onto the bus. Malformed frames and frame types a client may not
// send are logged and discarded; a bad frame never takes the connection
// down.
func (b *Bridge) HandleInbound(ctx context.Context, connID, username string, raw []byte) {
	frame, err := DecodeFrame(raw)
	if err != nil {
		slog.Warn("Discarding inbound frame", "user", username, "error", err)
		return
	}
	if !b.whitelist.IsAllowed(frame.MessageType) {
		slog.Warn("Discarding non-whitelisted frame", "user", username, "type", frame.MessageType)
		return
	}

	switch frame.MessageType {
	case FrameRegister:
		name := frame.Data
		if name == "" {
			name = username
		}
		b.publish(ctx, pubsub.Message{
			Topic:   topics.ChatClientRegister,
			Sender:  name,
			Payload: []byte(frame.Data),
			Metadata: map[string]string{
				topics.MetaConnectionID: connID,
			},
		})

	case FrameMessage:
		// Client message frames carry the body as plain text; it is
		// forwarded as-is, including empty or whitespace-only bodies.
		payload, _ := json.Marshal(struct {
			Body string `json:"body"`
		}{Body: frame.Data})
		b.publish(ctx, pubsub.Message{
			Topic:   topics.ChatMessageInbound,
			Sender:  username,
			Payload: payload,
			Metadata: map[string]string{
				topics.MetaConnectionID: connID,
				"timestamp":             time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
}

func (b *Bridge) publish(ctx context.Context, msg pubsub.Message) {
	if err := b.publisher.Publish(ctx, msg); err != nil {
		slog.Error("Bridge failed to publish inbound frame", "topic", msg.Topic, "error", err)
	}
}

func (b *Bridge) publishLifecycle(topic string, s Sink, reason string) {
	payload, _ := json.Marshal(map[string]any{
		"username":     s.User(),
		"connectionID": s.ConnID(),
		"reason":       reason,
	})
	msg := pubsub.Message{
		Topic:   topic,
		Sender:  s.User(),
		Payload: payload,
		Metadata: map[string]string{
			topics.MetaConnectionID: s.ConnID(),
		},
	}
	if err := b.publisher.Publish(context.Background(), msg); err != nil {
		slog.Error("Failed to publish lifecycle event", "topic", topic, "error", err)
	}
}
