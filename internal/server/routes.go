package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps go-playground/validator to implement echo's
// Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RegisterRoutes sets up the core routes and boots every module.
func (s *Server) RegisterRoutes(ctx context.Context) {
	// The data endpoint speaks the raw frame protocol for headless
	// clients; the chat module owns the HTML endpoint.
	s.E.GET("/ws/data", s.Bridge.Handler())

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	for _, m := range s.modules {
		if err := m.Boot(ctx, s.E, s.Deps); err != nil {
			slog.Error("Failed to boot module", "module", m.Name(), "error", err)
			os.Exit(1)
		}
		slog.Info("Module booted", "module", m.Name())
	}
}
