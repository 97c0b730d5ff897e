package server

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"

	"parley/internal/chat"
	"parley/internal/config"
	"parley/internal/devreload"
	"parley/internal/history"
	"parley/internal/logging"
	"parley/internal/module"
	"parley/internal/prefs"
	"parley/internal/pubsub"
	"parley/internal/rendering"
	"parley/internal/roster"
	"parley/internal/websocket"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E      *echo.Echo
	Cfg    *config.Config
	Bus    *pubsub.WatermillBridge
	Bridge *websocket.Bridge
	Roster *roster.Service
	Deps   *module.Deps

	modules []module.Module
	history history.Store
	cancel  context.CancelFunc
}

// New creates a new Server instance with every core service wired up.
// Modules are booted in RegisterRoutes.
func New() *Server {
	// Load environment variables from .env file if it exists.
	if err := godotenv.Load(); err != nil {
		// slog is not configured yet; the standard logger has to do.
		log.Println("No .env file found, relying on environment variables")
	}

	logging.New() // Initialize the structured logger
	cfg := config.New()

	ctx, cancel := context.WithCancel(context.Background())

	bus := pubsub.NewWatermillBridge()
	bridge := websocket.NewBridge(bus)
	go bridge.Run(ctx)
	if err := bridge.AttachBus(ctx, bus); err != nil {
		slog.Error("Failed to attach bridge to bus", "error", err)
		os.Exit(1)
	}

	rosterSvc := roster.NewService(ctx, bus, bus, roster.WithLiveness(bridge.Connected))

	store := newHistoryStore(ctx, cfg)
	prefStore := prefs.NewFileStore(afero.NewOsFs(), cfg.PrefsDir)
	renderer := rendering.NewUniversalRenderer()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Validator = NewValidator()

	cookies := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
	}
	e.Use(session.Middleware(cookies))

	e.Static("/static", "web/static")

	deps := &module.Deps{
		Cfg:      cfg,
		Bus:      bus,
		Bridge:   bridge,
		Renderer: renderer,
		Prefs:    prefStore,
		History:  store,
	}

	return &Server{
		E:      e,
		Cfg:    cfg,
		Bus:    bus,
		Bridge: bridge,
		Roster: rosterSvc,
		Deps:   deps,
		modules: []module.Module{
			&chat.Module{},
			&devreload.Module{Dir: "web/static"},
		},
		history: store,
		cancel:  cancel,
	}
}

// newHistoryStore picks the persistence backend. With no SurrealDB
// configured, history lives in memory and dies with the process.
func newHistoryStore(ctx context.Context, cfg *config.Config) history.Store {
	if cfg.DBUrl == "" {
		slog.Info("No SurrealDB configured, using in-memory message history")
		return history.NewMemoryStore()
	}
	store, err := history.Connect(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return store
}
