package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opencare/triage/domain"
	"github.com/opencare/triage/orchestrator"
)

// InboundMessage processes one transport-delivered message.
// POST /webhook/inbound
func (h *Handler) InboundMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var msg domain.InboundMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if msg.MessageID == "" || msg.From == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message_id and from are required"})
	}

	result, err := h.orch.HandleMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, orchestrator.ErrStorage) {
			// 503 tells the transport to redeliver; dedup makes the
			// retry safe.
			h.log.Error("storage failure handling message", "message_id", msg.MessageID, "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "storage unavailable"})
		}
		h.log.Error("failed to handle message", "message_id", msg.MessageID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to handle message"})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":     "ok",
		"session_id": result.SessionID,
		"reply":      result.Reply,
	})
}
