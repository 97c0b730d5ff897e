package module

import (
	"context"

	"github.com/labstack/echo/v4"

	"parley/internal/config"
	"parley/internal/history"
	"parley/internal/prefs"
	"parley/internal/pubsub"
	"parley/internal/rendering"
	"parley/internal/websocket"
)

// Deps carries the shared application services a module can wire itself
// into. The server owns all of them; modules only borrow.
type Deps struct {
	Cfg      *config.Config
	Bus      pubsub.Bus
	Bridge   *websocket.Bridge
	Renderer rendering.Renderer
	Prefs    *prefs.FileStore
	History  history.Store
}

// Module defines the contract for a self-contained application feature.
type Module interface {
	// Name returns a unique identifier for the module.
	Name() string

	// Boot is called during startup to register routes and start the
	// module's background processes.
	Boot(ctx context.Context, e *echo.Echo, deps *Deps) error

	// Shutdown is called during graceful application shutdown.
	Shutdown(ctx context.Context) error
}

// BaseModule provides default no-op implementations for Module methods.
// Modules can embed this to avoid implementing methods they don't need.
type BaseModule struct{}

func (m *BaseModule) Boot(ctx context.Context, e *echo.Echo, deps *Deps) error { return nil }
func (m *BaseModule) Shutdown(ctx context.Context) error                       { return nil }
