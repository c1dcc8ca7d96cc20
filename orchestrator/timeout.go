package orchestrator

import (
	"time"

	"github.com/opencare/triage/domain"
)

// IsStale reports whether a session's inactivity exceeds the window.
// Stale open sessions are marked timed_out and superseded before the
// triggering message is processed as the first turn of a new session.
func IsStale(session *domain.TriageSession, now time.Time, window time.Duration) bool {
	return now.Sub(session.LastActivity) > window
}
