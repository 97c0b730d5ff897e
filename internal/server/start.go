package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start runs the HTTP server until an interrupt, then shuts everything
// down in dependency order.
func (s *Server) Start(addr string) {
	go func() {
		if err := s.E.Start(addr); err != nil && err != http.ErrServerClosed {
			s.E.Logger.Fatalf("shutting down the server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Shutdown(ctx)
}

// Shutdown stops modules, background services and finally the listener.
func (s *Server) Shutdown(ctx context.Context) {
	for _, m := range s.modules {
		if err := m.Shutdown(ctx); err != nil {
			slog.Warn("Module shutdown failed", "module", m.Name(), "error", err)
		}
	}

	s.Roster.Shutdown()
	s.cancel()
	if err := s.Bus.Close(); err != nil {
		slog.Warn("Bus close failed", "error", err)
	}

	if closer, ok := s.history.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			slog.Warn("History store close failed", "error", err)
		}
	}

	if err := s.E.Shutdown(ctx); err != nil {
		s.E.Logger.Fatal(err)
	}
}
