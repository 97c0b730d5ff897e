package chat

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/history"
	"parley/internal/pubsub"
	"parley/internal/topics"
	"parley/internal/websocket"
)

// fakeBus records publishes and lets tests invoke subscribed handlers
// directly, without goroutines in the way.
type fakeBus struct {
	published []pubsub.Message
	handlers  map[string]pubsub.Handler
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]pubsub.Handler)}
}

func (f *fakeBus) Publish(ctx context.Context, msg pubsub.Message) error {
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) error {
	f.handlers[topic] = handler
	return nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) emit(t *testing.T, topic string, msg pubsub.Message) {
	t.Helper()
	handler, ok := f.handlers[topic]
	require.True(t, ok, "no handler subscribed on %s", topic)
	require.NoError(t, handler(context.Background(), msg))
}

func (f *fakeBus) publishedOn(topic string) []pubsub.Message {
	var out []pubsub.Message
	for _, msg := range f.published {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func newTestBroadcaster(t *testing.T, replayLimit int) (*Broadcaster, *fakeBus, history.Store) {
	t.Helper()
	bus := newFakeBus()
	store := history.NewMemoryStore()
	b := NewBroadcaster(bus, store, replayLimit, slog.Default())
	require.NoError(t, b.Run(context.Background()))
	return b, bus, store
}

func TestBroadcaster_SnapshotBecomesUsersFrame(t *testing.T) {
	_, bus, _ := newTestBroadcaster(t, 10)

	bus.emit(t, topics.RosterSnapshot, pubsub.Message{
		Topic:   topics.RosterSnapshot,
		Payload: []byte(`{"names":["alice","bob"]}`),
	})

	broadcasts := bus.publishedOn(topics.FrameBroadcast)
	require.Len(t, broadcasts, 1)

	frame, err := websocket.DecodeFrame(broadcasts[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, websocket.FrameUsers, frame.MessageType)
	assert.Equal(t, []string{"alice", "bob"}, frame.DataArray)
}

func TestBroadcaster_InboundMessagePersistsAndFansOut(t *testing.T) {
	_, bus, store := newTestBroadcaster(t, 10)

	bus.emit(t, topics.ChatMessageInbound, pubsub.Message{
		Topic:   topics.ChatMessageInbound,
		Sender:  "alice",
		Payload: []byte(`{"body":"hello"}`),
	})

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "alice", recent[0].Author)
	assert.Equal(t, "hello", recent[0].Body)

	broadcasts := bus.publishedOn(topics.FrameBroadcast)
	require.Len(t, broadcasts, 1)
	frame, err := websocket.DecodeFrame(broadcasts[0].Payload)
	require.NoError(t, err)
	payload, err := frame.Message()
	require.NoError(t, err)
	assert.Equal(t, websocket.MessagePayload{From: "alice", Body: "hello"}, payload)
}

func TestBroadcaster_EmptyBodyFansOut(t *testing.T) {
	_, bus, _ := newTestBroadcaster(t, 10)

	bus.emit(t, topics.ChatMessageInbound, pubsub.Message{
		Topic:   topics.ChatMessageInbound,
		Sender:  "alice",
		Payload: []byte(`{"body":""}`),
	})

	broadcasts := bus.publishedOn(topics.FrameBroadcast)
	require.Len(t, broadcasts, 1)
}

func TestBroadcaster_RegisterReplaysHistoryDirectly(t *testing.T) {
	_, bus, store := newTestBroadcaster(t, 10)

	ctx := context.Background()
	_, err := store.Append(ctx, "alice", "first")
	require.NoError(t, err)
	_, err = store.Append(ctx, "bob", "second")
	require.NoError(t, err)

	bus.emit(t, topics.ChatClientRegister, pubsub.Message{
		Topic:    topics.ChatClientRegister,
		Sender:   "carol",
		Metadata: map[string]string{topics.MetaConnectionID: "conn-1"},
	})

	directs := bus.publishedOn(topics.FrameDirect)
	require.Len(t, directs, 2)

	// Oldest first, addressed to the registering connection only.
	for _, d := range directs {
		assert.Equal(t, "conn-1", d.Metadata[topics.MetaRecipient])
	}
	first, err := websocket.DecodeFrame(directs[0].Payload)
	require.NoError(t, err)
	p, err := first.Message()
	require.NoError(t, err)
	assert.Equal(t, "first", p.Body)
}

func TestBroadcaster_NoReplayWithoutConnectionOrLimit(t *testing.T) {
	tests := []struct {
		name        string
		replayLimit int
		metadata    map[string]string
	}{
		{"zero limit", 0, map[string]string{topics.MetaConnectionID: "conn-1"}},
		{"missing connection", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bus, store := newTestBroadcaster(t, tt.replayLimit)
			_, err := store.Append(context.Background(), "alice", "hi")
			require.NoError(t, err)

			bus.emit(t, topics.ChatClientRegister, pubsub.Message{
				Topic:    topics.ChatClientRegister,
				Sender:   "bob",
				Metadata: tt.metadata,
			})

			assert.Empty(t, bus.publishedOn(topics.FrameDirect))
		})
	}
}

func TestBroadcaster_MalformedPayloadsAreDropped(t *testing.T) {
	_, bus, _ := newTestBroadcaster(t, 10)

	bus.emit(t, topics.RosterSnapshot, pubsub.Message{
		Topic:   topics.RosterSnapshot,
		Payload: []byte("not json"),
	})
	bus.emit(t, topics.ChatMessageInbound, pubsub.Message{
		Topic:   topics.ChatMessageInbound,
		Sender:  "alice",
		Payload: []byte("not json"),
	})

	assert.Empty(t, bus.publishedOn(topics.FrameBroadcast))
}
