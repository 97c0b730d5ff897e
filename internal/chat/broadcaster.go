package chat

import (
	"context"
	"encoding/json"
	"log/slog"

	"parley/internal/history"
	"parley/internal/pubsub"
	"parley/internal/roster"
	"parley/internal/topics"
	"parley/internal/websocket"
)

// Broadcaster turns bus events into wire frames. Roster snapshots and
// inbound messages fan out to every connection; newly registered
// clients get a bounded history replay addressed to them alone.
type Broadcaster struct {
	bus         pubsub.Bus
	store       history.Store
	replayLimit int
	logger      *slog.Logger
}

func NewBroadcaster(bus pubsub.Bus, store history.Store, replayLimit int, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		bus:         bus,
		store:       store,
		replayLimit: replayLimit,
		logger:      logger,
	}
}

// Run subscribes the broadcaster to its topics. Handlers are invoked on
// the bus's delivery goroutines and return when ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	if err := b.bus.Subscribe(ctx, topics.RosterSnapshot, b.onSnapshot); err != nil {
		return err
	}
	if err := b.bus.Subscribe(ctx, topics.ChatMessageInbound, b.onMessage); err != nil {
		return err
	}
	return b.bus.Subscribe(ctx, topics.ChatClientRegister, b.onRegister)
}

func (b *Broadcaster) onSnapshot(ctx context.Context, msg pubsub.Message) error {
	var snap roster.Snapshot
	if err := json.Unmarshal(msg.Payload, &snap); err != nil {
		b.logger.Warn("Discarding malformed roster snapshot", "error", err)
		return nil
	}
	frame, err := websocket.NewUsersFrame(snap.Names).Encode()
	if err != nil {
		return err
	}
	return b.bus.Publish(ctx, pubsub.Message{
		Topic:   topics.FrameBroadcast,
		Payload: frame,
	})
}

func (b *Broadcaster) onMessage(ctx context.Context, msg pubsub.Message) error {
	var body struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		b.logger.Warn("Discarding malformed chat message", "error", err)
		return nil
	}

	if _, err := b.store.Append(ctx, msg.Sender, body.Body); err != nil {
		b.logger.Error("Failed to persist chat message", "sender", msg.Sender, "error", err)
	}

	frame, err := websocket.NewMessageFrame(msg.Sender, body.Body)
	if err != nil {
		return err
	}
	raw, err := frame.Encode()
	if err != nil {
		return err
	}
	return b.bus.Publish(ctx, pubsub.Message{
		Topic:   topics.FrameBroadcast,
		Payload: raw,
	})
}

// onRegister replays recent history to the connection that just
// announced itself. Replay failures are logged, not fatal; the client
// still joins the live stream.
func (b *Broadcaster) onRegister(ctx context.Context, msg pubsub.Message) error {
	connID := msg.Metadata[topics.MetaConnectionID]
	if connID == "" || b.replayLimit <= 0 {
		return nil
	}

	recent, err := b.store.Recent(ctx, b.replayLimit)
	if err != nil {
		b.logger.Error("Failed to load chat history", "error", err)
		return nil
	}

	for _, m := range recent {
		frame, err := websocket.NewMessageFrame(m.Author, m.Body)
		if err != nil {
			b.logger.Error("Failed to build replay frame", "error", err)
			continue
		}
		raw, err := frame.Encode()
		if err != nil {
			continue
		}
		err = b.bus.Publish(ctx, pubsub.Message{
			Topic:    topics.FrameDirect,
			Payload:  raw,
			Metadata: map[string]string{topics.MetaRecipient: connID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
