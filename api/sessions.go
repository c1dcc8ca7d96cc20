package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetSession returns a session by its opaque identifier.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		h.log.Error("failed to get session", "session_id", sessionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get session"})
	}
	if session == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	return c.JSON(http.StatusOK, session)
}

// GetSessionTurns returns the conversation log for a session.
// GET /v1/sessions/:session_id/turns
func (h *Handler) GetSessionTurns(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}

	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		h.log.Error("failed to get session", "session_id", sessionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get session"})
	}
	if session == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	turns, err := h.store.GetTurns(ctx, sessionID, limit+1)
	if err != nil {
		h.log.Error("failed to get turns", "session_id", sessionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get turns"})
	}

	hasMore := len(turns) > limit
	if hasMore {
		turns = turns[:limit]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"turns":    turns,
		"has_more": hasMore,
	})
}
