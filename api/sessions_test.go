package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencare/triage/api"
	"github.com/opencare/triage/domain"
	"github.com/opencare/triage/tests/helpers"
)

func getWithSessionID(t *testing.T, handler func(echo.Context) error, target, sessionID string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	require.NoError(t, handler(c))
	return rec
}

func startSession(t *testing.T, h *api.Handler) string {
	t.Helper()

	rec := postInbound(t, h, `{"message_id": "m1", "from": "+15550001234", "text": "my head hurts"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["session_id"]
}

func TestGetSessionNotFound(t *testing.T) {
	h := newTestHandler(t, helpers.NewTestSQLiteStore(t))

	rec := getWithSessionID(t, h.GetSession, "/v1/sessions/ses_missing", "ses_missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSession(t *testing.T) {
	h := newTestHandler(t, helpers.NewTestSQLiteStore(t))
	sessionID := startSession(t, h)

	rec := getWithSessionID(t, h.GetSession, "/v1/sessions/"+sessionID, sessionID)
	require.Equal(t, http.StatusOK, rec.Code)

	var session domain.TriageSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, sessionID, session.SessionID)
	assert.Equal(t, domain.StatusOpen, session.Status)
	assert.Len(t, session.Slots, len(domain.DefaultSlotDefinitions()))
	assert.Equal(t, 1, session.FilledCount())
}

func TestGetSessionTurns(t *testing.T) {
	h := newTestHandler(t, helpers.NewTestSQLiteStore(t))
	sessionID := startSession(t, h)

	rec := getWithSessionID(t, h.GetSessionTurns, "/v1/sessions/"+sessionID+"/turns", sessionID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Turns   []domain.ConversationTurn `json:"turns"`
		HasMore bool                      `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Turns, 2)
	assert.False(t, resp.HasMore)
	assert.Equal(t, domain.TurnInbound, resp.Turns[0].Direction)
	assert.Equal(t, "my head hurts", resp.Turns[0].Text)
	assert.Equal(t, domain.TurnOutbound, resp.Turns[1].Direction)
	assert.NotEmpty(t, resp.Turns[1].Text)

	paged := getWithSessionID(t, h.GetSessionTurns, "/v1/sessions/"+sessionID+"/turns?limit=1", sessionID)
	require.Equal(t, http.StatusOK, paged.Code)
	require.NoError(t, json.Unmarshal(paged.Body.Bytes(), &resp))
	assert.Len(t, resp.Turns, 1)
	assert.True(t, resp.HasMore)
}

func TestGetSessionTurnsUnknownSession(t *testing.T) {
	h := newTestHandler(t, helpers.NewTestSQLiteStore(t))

	rec := getWithSessionID(t, h.GetSessionTurns, "/v1/sessions/ses_missing/turns", "ses_missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
