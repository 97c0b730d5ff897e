package server_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/chat"
	"parley/internal/history"
	"parley/internal/pubsub"
	"parley/internal/roster"
	ws "parley/internal/websocket"
)

// testStack wires the full live path: bus, bridge, roster service,
// broadcaster and the data endpoint, behind an httptest server.
type testStack struct {
	server *httptest.Server
	store  history.Store
}

func setupStack(t *testing.T) *testStack {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bus.Close() })

	bridge := ws.NewBridge(bus)
	go bridge.Run(ctx)
	require.NoError(t, bridge.AttachBus(ctx, bus))

	rosterSvc := roster.NewService(ctx, bus, bus, roster.WithOfflineDebounce(0))
	t.Cleanup(rosterSvc.Shutdown)

	store := history.NewMemoryStore()
	broadcaster := chat.NewBroadcaster(bus, store, 10, slog.Default())
	require.NoError(t, broadcaster.Run(ctx))

	e := echo.New()
	e.GET("/ws/data", bridge.Handler())

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testStack{server: srv, store: store}
}

func (s *testStack) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws/data"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "Failed to connect to data websocket")
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame ws.Frame) {
	t.Helper()
	raw, err := frame.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

// expectFrame reads frames until one of the wanted type shows up.
// Broadcast and direct frames ride separate subscriptions, so arrival
// order across types is not guaranteed.
func expectFrame(t *testing.T, conn *websocket.Conn, frameType string) ws.Frame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "Failed to read from websocket")
		frame, err := ws.DecodeFrame(raw)
		if err != nil {
			continue
		}
		if frame.MessageType == frameType {
			return frame
		}
	}
	t.Fatalf("no %q frame arrived in time", frameType)
	return ws.Frame{}
}

func TestDataEndpoint_RegisterYieldsRosterSnapshot(t *testing.T) {
	stack := setupStack(t)

	alice := stack.dial(t)
	send(t, alice, ws.NewRegisterFrame("alice"))

	frame := expectFrame(t, alice, ws.FrameUsers)
	assert.Equal(t, []string{"alice"}, frame.DataArray)

	bob := stack.dial(t)
	send(t, bob, ws.NewRegisterFrame("bob"))

	// Both clients get the updated full-replace snapshot.
	frame = expectFrame(t, alice, ws.FrameUsers)
	assert.Equal(t, []string{"alice", "bob"}, frame.DataArray)
	frame = expectFrame(t, bob, ws.FrameUsers)
	assert.Equal(t, []string{"alice", "bob"}, frame.DataArray)
}

func TestDataEndpoint_MessageEchoesToEveryone(t *testing.T) {
	stack := setupStack(t)

	alice := stack.dial(t)
	send(t, alice, ws.NewRegisterFrame("alice"))
	expectFrame(t, alice, ws.FrameUsers)

	bob := stack.dial(t)
	send(t, bob, ws.NewRegisterFrame("bob"))
	expectFrame(t, bob, ws.FrameUsers)

	send(t, alice, ws.Frame{MessageType: ws.FrameMessage, Data: "hello"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := expectFrame(t, conn, ws.FrameMessage)
		payload, err := frame.Message()
		require.NoError(t, err)
		assert.Equal(t, ws.MessagePayload{From: "alice", Body: "hello"}, payload)
	}
}

func TestDataEndpoint_LateJoinerGetsHistoryReplay(t *testing.T) {
	stack := setupStack(t)

	alice := stack.dial(t)
	send(t, alice, ws.NewRegisterFrame("alice"))
	expectFrame(t, alice, ws.FrameUsers)

	send(t, alice, ws.Frame{MessageType: ws.FrameMessage, Data: "early bird"})
	expectFrame(t, alice, ws.FrameMessage)

	carol := stack.dial(t)
	send(t, carol, ws.NewRegisterFrame("carol"))

	frame := expectFrame(t, carol, ws.FrameMessage)
	payload, err := frame.Message()
	require.NoError(t, err)
	assert.Equal(t, "early bird", payload.Body)
	assert.Equal(t, "alice", payload.From)
}

func TestDataEndpoint_ForgedUsersFrameIsDropped(t *testing.T) {
	stack := setupStack(t)

	alice := stack.dial(t)
	send(t, alice, ws.NewRegisterFrame("alice"))
	expectFrame(t, alice, ws.FrameUsers)

	mallory := stack.dial(t)
	send(t, mallory, ws.NewRegisterFrame("mallory"))
	expectFrame(t, mallory, ws.FrameUsers)

	// A client-sent roster snapshot must never reach anyone.
	send(t, mallory, ws.NewUsersFrame([]string{"mallory-only"}))
	send(t, mallory, ws.Frame{MessageType: ws.FrameMessage, Data: "after"})

	frame := expectFrame(t, alice, ws.FrameMessage)
	payload, err := frame.Message()
	require.NoError(t, err)
	assert.Equal(t, "after", payload.Body)
}
