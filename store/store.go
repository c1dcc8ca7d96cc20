// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/opencare/triage/domain"
)

// Store defines the interface for data persistence. The orchestrator is
// the only writer; the query API reads sessions and turns.
type Store interface {
	// Session operations. CreateSession makes the new session the live
	// one for its patient key, releasing any previous live session.
	CreateSession(ctx context.Context, session *domain.TriageSession) error
	SaveSession(ctx context.Context, session *domain.TriageSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.TriageSession, error)
	GetLiveSession(ctx context.Context, patientKey string) (*domain.TriageSession, error)

	// Turn operations (append-only audit log)
	AppendTurn(ctx context.Context, turn *domain.ConversationTurn) error
	GetTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error)

	// Transport message dedup. GetProcessedReply returns the reply
	// produced when the message ID was first handled, if it was.
	GetProcessedReply(ctx context.Context, messageID string) (sessionID, reply string, ok bool, err error)
	MarkProcessed(ctx context.Context, messageID, sessionID, reply string) error

	// Lifecycle
	Close() error
}
