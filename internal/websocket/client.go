package websocket

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Outbound queue depth per connection.
	sendBuffer = 256
)

// Client is a single data-endpoint connection. It speaks the raw wire
// frame protocol: inbound frames are routed onto the bus, outbound
// frames are written verbatim.
type Client struct {
	id     string
	conn   *websocket.Conn
	bridge *Bridge
	send   chan []byte

	mu       sync.RWMutex
	username string
}

// NewClient wraps an accepted connection. The username may be empty; a
// register frame fills it in.
func NewClient(id, username string, conn *websocket.Conn, bridge *Bridge) *Client {
	return &Client{
		id:       id,
		conn:     conn,
		bridge:   bridge,
		send:     make(chan []byte, sendBuffer),
		username: username,
	}
}

// ConnID implements Sink.
func (c *Client) ConnID() string { return c.id }

// User implements Sink.
func (c *Client) User() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Client) setUser(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = name
}

// Deliver implements Sink. A full queue drops the payload rather than
// blocking the bridge.
func (c *Client) Deliver(payload []byte) {
	select {
	case c.send <- payload:
	default:
		slog.Warn("Client send channel full, dropping payload", "connID", c.id)
	}
}

// ReadPump pumps frames from the connection onto the bus. It blocks
// until the connection dies and detaches the client on the way out.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.bridge.Detach(c)
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				slog.Info("WebSocket closed normally by client", "connID", c.id)
			} else if err != io.EOF && ctx.Err() == nil {
				slog.Error("WebSocket read error", "connID", c.id, "error", err)
			}
			return
		}

		// A register frame names an anonymous connection before the
		// frame goes onto the bus, so direct replies can find it.
		if frame, err := DecodeFrame(raw); err == nil && frame.MessageType == FrameRegister && frame.Data != "" {
			c.setUser(frame.Data)
		}

		c.bridge.HandleInbound(ctx, c.id, c.User(), raw)
	}
}

// WritePump pumps queued payloads to the connection. It returns when the
// send channel is drained after a close or a write fails.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				slog.Error("WebSocket write error", "connID", c.id, "error", err)
				return
			}
		}
	}
}
