package chat

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"

	"parley/internal/module"
)

// Module bundles the chat feature: the login flow, the chat page, the
// HTML websocket endpoint and the broadcaster that feeds it.
type Module struct {
	module.BaseModule
}

// Name implements module.Module.
func (m *Module) Name() string { return "chat" }

// Boot implements module.Module.
func (m *Module) Boot(ctx context.Context, e *echo.Echo, deps *module.Deps) error {
	broadcaster := NewBroadcaster(deps.Bus, deps.History, deps.Cfg.HistoryLimit, slog.Default().With("component", "chat_broadcaster"))
	if err := broadcaster.Run(ctx); err != nil {
		return err
	}

	handler := NewHandler(deps.Bridge, deps.Prefs, deps.Renderer, cardRoster, deps.Cfg.AvatarBaseURL)

	e.GET("/", handler.Login)
	e.POST("/login", handler.SubmitLogin)
	e.GET("/logout", handler.Logout)
	e.GET("/chat", handler.ChatPage)
	e.GET("/ws/html", handler.ServeWS)

	return nil
}
