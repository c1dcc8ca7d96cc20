package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// SessionStatus represents the lifecycle state of a triage session.
type SessionStatus string

const (
	StatusOpen      SessionStatus = "open"
	StatusCompleted SessionStatus = "completed"
	StatusTimedOut  SessionStatus = "timed_out"
	StatusEmergency SessionStatus = "emergency"
)

// Terminal reports whether no further intake turns belong to this session.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusTimedOut, StatusEmergency:
		return true
	}
	return false
}

// TriageSession is one bounded intake conversation for a single sender.
// At most one session per patient key is live at a time; superseded
// sessions are kept for history and never mutated again.
type TriageSession struct {
	SessionID     string        `json:"session_id"`
	PatientKey    string        `json:"patient_key"`
	Status        SessionStatus `json:"status"`
	Slots         []SlotValue   `json:"slots"`
	EmergencyFlag bool          `json:"emergency_flag"`
	Indicators    []string      `json:"indicators,omitempty"`
	Disposition   string        `json:"disposition,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	LastActivity  time.Time     `json:"last_activity"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// NewTriageSession creates an open session with one empty SlotValue per
// definition, in ordinal order.
func NewTriageSession(sessionID, patientKey string, defs []SlotDefinition, now time.Time) *TriageSession {
	slots := make([]SlotValue, 0, len(defs))
	for _, d := range defs {
		slots = append(slots, SlotValue{SlotID: d.ID})
	}
	return &TriageSession{
		SessionID:    sessionID,
		PatientKey:   patientKey,
		Status:       StatusOpen,
		Slots:        slots,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// PendingSlot returns the first unfilled slot definition in ordinal
// order, or false when every slot is filled.
func (s *TriageSession) PendingSlot(defs []SlotDefinition) (SlotDefinition, bool) {
	for i, d := range defs {
		if i < len(s.Slots) && !s.Slots[i].Filled() {
			return d, true
		}
	}
	return SlotDefinition{}, false
}

// ApplyCapture sets a slot value. Filled slots are left untouched so
// reprocessing the same extraction result is safe. Returns
// ErrUnknownSlot for slot IDs outside the defined set.
func (s *TriageSession) ApplyCapture(defs []SlotDefinition, slotID, value string, source CaptureSource, now time.Time) error {
	if _, ok := SlotDefinitionByID(defs, slotID); !ok {
		return ErrUnknownSlot
	}
	for i := range s.Slots {
		if s.Slots[i].SlotID != slotID {
			continue
		}
		if s.Slots[i].Filled() {
			return nil
		}
		v := value
		t := now
		s.Slots[i].Value = &v
		s.Slots[i].CapturedAt = &t
		s.Slots[i].Source = source
		return nil
	}
	return ErrUnknownSlot
}

// IsComplete reports whether every slot holds a value.
func (s *TriageSession) IsComplete() bool {
	for _, v := range s.Slots {
		if !v.Filled() {
			return false
		}
	}
	return len(s.Slots) > 0
}

// FilledCount returns how many slots hold a value.
func (s *TriageSession) FilledCount() int {
	n := 0
	for _, v := range s.Slots {
		if v.Filled() {
			n++
		}
	}
	return n
}

// SlotSnapshot returns the slot state as a slot_id -> value map,
// serialized for turn records and extraction requests.
func (s *TriageSession) SlotSnapshot() json.RawMessage {
	m := make(map[string]*string, len(s.Slots))
	for _, v := range s.Slots {
		m[v.SlotID] = v.Value
	}
	b, _ := json.Marshal(m)
	return b
}

// PatientKey derives the opaque per-sender identifier from the raw
// sender identity. Only the salted hash is ever stored or logged.
func PatientKey(salt, sender string) string {
	var digits strings.Builder
	for _, r := range sender {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if normalized == "" {
		normalized = strings.TrimSpace(strings.ToLower(sender))
	}
	sum := sha256.Sum256([]byte(salt + normalized))
	return hex.EncodeToString(sum[:])
}
