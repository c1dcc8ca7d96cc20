package extract

import (
	"fmt"
	"strings"

	"github.com/opencare/triage/domain"
)

// Fallback is the deterministic extraction path. It never fails: the
// entire raw inbound text becomes the literal value of the pending
// slot, and the reply is the question for the next pending slot (or the
// completion message when none remain). No semantic parsing happens
// here; that is the point.
func Fallback(defs []domain.SlotDefinition, session *domain.TriageSession, rawText string) *domain.ExtractionResult {
	result := &domain.ExtractionResult{Slots: map[string]string{}}

	pending, ok := session.PendingSlot(defs)
	if !ok {
		result.Message = CompletionMessage
		return result
	}

	text := strings.TrimSpace(rawText)
	if text != "" {
		result.Slots[pending.ID] = text
	}

	// The question to ask next depends on whether the pending slot was
	// just captured above.
	next, found := nextPending(defs, session, pending.ID, text != "")
	if !found {
		result.Message = CompletionMessage
		return result
	}
	result.Message = fmt.Sprintf("%s %s", next.Question, next.Explanation)
	return result
}

// nextPending walks the definitions in ordinal order and returns the
// first slot that will still be unfilled after this turn's capture.
func nextPending(defs []domain.SlotDefinition, session *domain.TriageSession, capturedID string, captured bool) (domain.SlotDefinition, bool) {
	for i, d := range defs {
		if i >= len(session.Slots) {
			break
		}
		if session.Slots[i].Filled() {
			continue
		}
		if captured && d.ID == capturedID {
			continue
		}
		return d, true
	}
	return domain.SlotDefinition{}, false
}
