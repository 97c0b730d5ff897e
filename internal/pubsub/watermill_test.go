package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillBridge_PublishReachesSubscriber(t *testing.T) {
	bus := NewWatermillBridge()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	require.NoError(t, bus.Subscribe(ctx, "test.topic", func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	}))

	sent := Message{
		Topic:    "test.topic",
		Sender:   "alice",
		Payload:  []byte(`{"body":"hello"}`),
		Metadata: map[string]string{"connection_id": "conn-1"},
	}
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.Topic, got.Topic)
		assert.Equal(t, sent.Sender, got.Sender)
		assert.Equal(t, sent.Payload, got.Payload)
		assert.Equal(t, "conn-1", got.Metadata["connection_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("message never arrived")
	}
}

func TestWatermillBridge_FansOutToAllSubscribers(t *testing.T) {
	bus := NewWatermillBridge()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		require.NoError(t, bus.Subscribe(ctx, "fanout.topic", func(ctx context.Context, msg Message) error {
			wg.Done()
			return nil
		}))
	}

	require.NoError(t, bus.Publish(ctx, Message{Topic: "fanout.topic", Payload: []byte("x")}))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every subscriber saw the message")
	}
}

func TestWatermillBridge_TopicsAreIsolated(t *testing.T) {
	bus := NewWatermillBridge()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	require.NoError(t, bus.Subscribe(ctx, "topic.a", func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, Message{Topic: "topic.b", Payload: []byte("elsewhere")}))

	select {
	case <-received:
		t.Fatal("subscriber saw a message from another topic")
	case <-time.After(100 * time.Millisecond):
	}
}
