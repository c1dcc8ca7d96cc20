// Package api provides HTTP handlers for the triage orchestrator.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opencare/triage/logger"
	"github.com/opencare/triage/orchestrator"
	"github.com/opencare/triage/store"
)

// Handler handles HTTP requests.
type Handler struct {
	store store.Store
	orch  *orchestrator.Orchestrator
	log   *logger.Logger
}

// NewHandler creates a new handler.
func NewHandler(st store.Store, orch *orchestrator.Orchestrator, log *logger.Logger) *Handler {
	return &Handler{
		store: st,
		orch:  orch,
		log:   log,
	}
}

// RegisterPublicRoutes registers the transport-facing routes.
func (h *Handler) RegisterPublicRoutes(e *echo.Echo) {
	e.POST("/webhook/inbound", h.InboundMessage)
	e.GET("/health", h.Health)
}

// RegisterInternalRoutes registers the read-only query surface for the
// review tooling. There is no mutation entry point here; the webhook is
// the only write path.
func (h *Handler) RegisterInternalRoutes(e *echo.Echo) {
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.GET("/v1/sessions/:session_id/turns", h.GetSessionTurns)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
