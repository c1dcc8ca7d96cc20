package domain

import "encoding/json"

// ExtractionRequest is what the extraction service is asked to work on:
// the raw inbound text plus an ordered snapshot of the slot state. Turn
// history stays out of it; the audit log is write-once and is never
// read back into orchestration.
type ExtractionRequest struct {
	Text     string
	Snapshot json.RawMessage
	Pending  string
}

// ExtractionResult is an all-or-nothing result from either extraction
// path: the outbound message, zero or more slot captures, and the
// service's advisory emergency opinion.
type ExtractionResult struct {
	Message        string            `json:"message"`
	Slots          map[string]string `json:"slots"`
	FoundEmergency bool              `json:"found_emergency"`
}

// SignalSource tags where an emergency signal came from. Only the
// deterministic detector is authoritative; extractor signals are
// recorded for review and never change session status.
type SignalSource string

const (
	SignalSourceDetector  SignalSource = "detector"
	SignalSourceExtractor SignalSource = "extractor"
)

// EmergencySignal is one emergency opinion with its provenance.
type EmergencySignal struct {
	Source     SignalSource `json:"source"`
	Indicators []string     `json:"indicators,omitempty"`
}

// Authoritative reports whether this signal may transition a session to
// emergency status.
func (s EmergencySignal) Authoritative() bool {
	return s.Source == SignalSourceDetector
}
