package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/opencare/triage/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			patient_key TEXT NOT NULL,
			status TEXT NOT NULL,
			emergency INTEGER NOT NULL DEFAULT 0,
			indicators TEXT,
			disposition TEXT,
			live INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			last_activity DATETIME NOT NULL,
			completed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_live ON sessions(patient_key, live)`,
		`CREATE TABLE IF NOT EXISTS slot_values (
			session_id TEXT NOT NULL,
			slot_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			value TEXT,
			captured_at DATETIME,
			source TEXT,
			PRIMARY KEY (session_id, slot_id),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			snapshot TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn_id)`,
		`CREATE TABLE IF NOT EXISTS processed_messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			reply TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a session with its slot rows and makes it the
// live session for the patient key. Any previous live session for the
// same key is released in the same transaction.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.TriageSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET live = 0 WHERE patient_key = ? AND live = 1`,
		session.PatientKey); err != nil {
		return err
	}

	indicators, _ := json.Marshal(session.Indicators)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, patient_key, status, emergency, indicators, disposition, live, created_at, last_activity, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		session.SessionID, session.PatientKey, session.Status, boolToInt(session.EmergencyFlag),
		string(indicators), session.Disposition, session.CreatedAt, session.LastActivity, session.CompletedAt); err != nil {
		return err
	}

	for i, v := range session.Slots {
		var value sql.NullString
		var capturedAt sql.NullTime
		var source sql.NullString
		if v.Filled() {
			value = sql.NullString{String: *v.Value, Valid: true}
			capturedAt = sql.NullTime{Time: *v.CapturedAt, Valid: true}
			source = sql.NullString{String: string(v.Source), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slot_values (session_id, slot_id, ordinal, value, captured_at, source) VALUES (?, ?, ?, ?, ?, ?)`,
			session.SessionID, v.SlotID, i, value, capturedAt, source); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveSession updates the session row and fills slot values. A slot row
// that already holds a value is never updated; the WHERE clause makes
// the no-overwrite invariant hold at the storage layer too.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.TriageSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	indicators, _ := json.Marshal(session.Indicators)
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status = ?, emergency = ?, indicators = ?, disposition = ?, last_activity = ?, completed_at = ?
		 WHERE session_id = ?`,
		session.Status, boolToInt(session.EmergencyFlag), string(indicators), session.Disposition,
		session.LastActivity, session.CompletedAt, session.SessionID); err != nil {
		return err
	}

	for _, v := range session.Slots {
		if !v.Filled() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE slot_values SET value = ?, captured_at = ?, source = ?
			 WHERE session_id = ? AND slot_id = ? AND value IS NULL`,
			*v.Value, *v.CapturedAt, string(v.Source), session.SessionID, v.SlotID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSession retrieves a session with its slot values by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.TriageSession, error) {
	return s.scanSession(ctx,
		`SELECT session_id, patient_key, status, emergency, indicators, disposition, created_at, last_activity, completed_at
		 FROM sessions WHERE session_id = ?`, sessionID)
}

// GetLiveSession retrieves the live session for a patient key, or nil.
func (s *SQLiteStore) GetLiveSession(ctx context.Context, patientKey string) (*domain.TriageSession, error) {
	return s.scanSession(ctx,
		`SELECT session_id, patient_key, status, emergency, indicators, disposition, created_at, last_activity, completed_at
		 FROM sessions WHERE patient_key = ? AND live = 1`, patientKey)
}

func (s *SQLiteStore) scanSession(ctx context.Context, query string, arg string) (*domain.TriageSession, error) {
	var session domain.TriageSession
	var emergency int
	var indicators, disposition sql.NullString
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&session.SessionID, &session.PatientKey, &session.Status, &emergency,
		&indicators, &disposition, &session.CreatedAt, &session.LastActivity, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.EmergencyFlag = emergency != 0
	if indicators.Valid && indicators.String != "" && indicators.String != "null" {
		if err := json.Unmarshal([]byte(indicators.String), &session.Indicators); err != nil {
			return nil, fmt.Errorf("decode indicators: %w", err)
		}
	}
	if disposition.Valid {
		session.Disposition = disposition.String
	}
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT slot_id, value, captured_at, source FROM slot_values WHERE session_id = ? ORDER BY ordinal ASC`,
		session.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.SlotValue
		var value, source sql.NullString
		var capturedAt sql.NullTime
		if err := rows.Scan(&v.SlotID, &value, &capturedAt, &source); err != nil {
			return nil, err
		}
		if value.Valid {
			val := value.String
			v.Value = &val
		}
		if capturedAt.Valid {
			t := capturedAt.Time
			v.CapturedAt = &t
		}
		if source.Valid {
			v.Source = domain.CaptureSource(source.String)
		}
		session.Slots = append(session.Slots, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &session, nil
}

// AppendTurn appends a conversation turn record.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn *domain.ConversationTurn) error {
	snapshot := ""
	if turn.Snapshot != nil {
		snapshot = string(turn.Snapshot)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (turn_id, session_id, direction, text, created_at, snapshot) VALUES (?, ?, ?, ?, ?, ?)`,
		turn.TurnID, turn.SessionID, turn.Direction, turn.Text, turn.CreatedAt, snapshot)
	return err
}

// GetTurns retrieves turns for a session in insertion order. Turn IDs
// are ULIDs, so ordering by ID is ordering by time.
func (s *SQLiteStore) GetTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	query := `SELECT turn_id, session_id, direction, text, created_at, snapshot FROM turns WHERE session_id = ? ORDER BY turn_id ASC`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var turn domain.ConversationTurn
		var snapshot sql.NullString
		if err := rows.Scan(&turn.TurnID, &turn.SessionID, &turn.Direction, &turn.Text, &turn.CreatedAt, &snapshot); err != nil {
			return nil, err
		}
		if snapshot.Valid && snapshot.String != "" {
			turn.Snapshot = json.RawMessage(snapshot.String)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// GetProcessedReply returns the outbound reply recorded for a transport
// message ID, if that ID was already handled.
func (s *SQLiteStore) GetProcessedReply(ctx context.Context, messageID string) (string, string, bool, error) {
	var sessionID, reply string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, reply FROM processed_messages WHERE message_id = ?`,
		messageID).Scan(&sessionID, &reply)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return sessionID, reply, true, nil
}

// MarkProcessed records that a transport message ID has been handled.
// INSERT OR IGNORE keeps a concurrent duplicate delivery from failing.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, messageID, sessionID, reply string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_messages (message_id, session_id, reply) VALUES (?, ?, ?)`,
		messageID, sessionID, reply)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
