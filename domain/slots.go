// Package domain defines the core domain models for the triage orchestrator.
package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// CaptureSource records how a slot value was obtained.
type CaptureSource string

const (
	CaptureSourceExtracted       CaptureSource = "extracted"
	CaptureSourceFallbackLiteral CaptureSource = "fallback-literal"
)

// ErrUnknownSlot is returned when a capture targets a slot identifier
// outside the defined set.
var ErrUnknownSlot = errors.New("unknown slot identifier")

// RangeRule is an optional numeric validation rule for a slot.
type RangeRule struct {
	Min float64
	Max float64
}

// SlotDefinition is the static description of one intake field.
// Definitions are built once at process start and never mutated.
type SlotDefinition struct {
	ID          string
	Question    string
	Explanation string
	Ordinal     int
	Validation  *RangeRule
}

// ValidCapture reports whether a candidate value satisfies the slot's
// validation rule. Slots without a rule accept anything non-empty.
// Values that do not parse as a number are accepted as-is; patients
// answer "unbearable" as often as "9".
func (d SlotDefinition) ValidCapture(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	if d.Validation == nil {
		return true
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return true
	}
	return n >= d.Validation.Min && n <= d.Validation.Max
}

// SlotValue is the mutable per-session state of one slot.
type SlotValue struct {
	SlotID     string        `json:"slot_id"`
	Value      *string       `json:"value"`
	CapturedAt *time.Time    `json:"captured_at,omitempty"`
	Source     CaptureSource `json:"source,omitempty"`
}

// Filled reports whether the slot holds a captured value.
func (v SlotValue) Filled() bool {
	return v.Value != nil
}

// DefaultSlotDefinitions returns the standard intake slot set, in the
// order the conversation should fill them.
func DefaultSlotDefinitions() []SlotDefinition {
	return []SlotDefinition{
		{
			ID:          "chief_complaint",
			Question:    "What is the main reason for reaching out today?",
			Explanation: "Knowing your main concern helps us direct your care.",
			Ordinal:     0,
		},
		{
			ID:          "symptoms",
			Question:    "Could you describe the symptoms you are experiencing?",
			Explanation: "Symptom details help the clinical team understand your situation.",
			Ordinal:     1,
		},
		{
			ID:          "duration",
			Question:    "How long ago did these symptoms start?",
			Explanation: "Duration matters when assessing how soon you should be seen.",
			Ordinal:     2,
		},
		{
			ID:          "frequency",
			Question:    "How often do the symptoms occur?",
			Explanation: "Constant, occasional, or situational makes a difference.",
			Ordinal:     3,
		},
		{
			ID:          "intensity",
			Question:    "On a scale from 0 to 10, where 0 is no discomfort and 10 is unbearable, how intense is it?",
			Explanation: "The scale helps the team gauge your level of discomfort.",
			Ordinal:     4,
			Validation:  &RangeRule{Min: 0, Max: 10},
		},
		{
			ID:          "history",
			Question:    "Do you have any medical history, conditions, or surgeries worth mentioning?",
			Explanation: "Relevant history can change what kind of appointment you need.",
			Ordinal:     5,
		},
		{
			ID:          "measures_taken",
			Question:    "Have you taken any medication or done anything to relieve the symptoms?",
			Explanation: "Knowing what was already tried avoids repetition.",
			Ordinal:     6,
		},
	}
}

// SlotDefinitionByID looks up a definition in a set.
func SlotDefinitionByID(defs []SlotDefinition, slotID string) (SlotDefinition, bool) {
	for _, d := range defs {
		if d.ID == slotID {
			return d, true
		}
	}
	return SlotDefinition{}, false
}
