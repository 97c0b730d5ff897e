package websocket

import (
	"log/slog"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler returns an echo.HandlerFunc that upgrades requests on the data
// endpoint. Data clients are anonymous until they send a register frame;
// there is no login requirement on this surface.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true, // In production, check origin.
		})
		if err != nil {
			slog.Error("Failed to upgrade connection to WebSocket", "error", err)
			return err
		}

		client := NewClient(uuid.NewString(), "", conn, b)
		b.Attach(client)

		ctx := c.Request().Context()
		go client.WritePump(ctx)
		// Run the read pump on the handler goroutine so echo keeps the
		// request alive for the duration of the connection.
		client.ReadPump(ctx)

		return nil
	}
}
