package devreload

import (
	"context"

	"github.com/labstack/echo/v4"

	"parley/internal/module"
)

// Module wires the static-asset watcher in when STATIC_WATCH is set and
// stays inert otherwise.
type Module struct {
	module.BaseModule
	Dir string
}

// Name implements module.Module.
func (m *Module) Name() string { return "devreload" }

// Boot implements module.Module.
func (m *Module) Boot(ctx context.Context, e *echo.Echo, deps *module.Deps) error {
	if !deps.Cfg.StaticWatch {
		return nil
	}

	watcher := New(m.Dir)
	e.GET("/ws/reload", watcher.Handler())
	go func() {
		if err := watcher.Run(ctx); err != nil {
			watcher.logger.Error("Static watcher stopped", "error", err)
		}
	}()
	return nil
}
