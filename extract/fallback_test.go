package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/opencare/triage/domain"
)

func fallbackDefs() []domain.SlotDefinition {
	return []domain.SlotDefinition{
		{ID: "chief_complaint", Question: "What brings you in today?", Explanation: "A few words are fine.", Ordinal: 0},
		{ID: "duration", Question: "How long has this been going on?", Explanation: "", Ordinal: 1},
		{ID: "intensity", Question: "How intense is it from 0 to 10?", Explanation: "", Ordinal: 2},
	}
}

func TestFallbackCapturesLiteralText(t *testing.T) {
	defs := fallbackDefs()
	session := domain.NewTriageSession("ses_1", "pk", defs, time.Now())

	result := Fallback(defs, session, "  my head hurts  ")

	if got := result.Slots["chief_complaint"]; got != "my head hurts" {
		t.Fatalf("expected trimmed literal capture, got %q", got)
	}
	if !strings.Contains(result.Message, "How long has this been going on?") {
		t.Fatalf("expected next slot question, got %q", result.Message)
	}
}

func TestFallbackAsksNextUnfilledInOrder(t *testing.T) {
	defs := fallbackDefs()
	now := time.Now()
	session := domain.NewTriageSession("ses_1", "pk", defs, now)

	// Middle slot already answered; after capturing the first slot the
	// next question must skip it.
	if err := session.ApplyCapture(defs, "duration", "two days", domain.CaptureSourceExtracted, now); err != nil {
		t.Fatalf("ApplyCapture failed: %v", err)
	}

	result := Fallback(defs, session, "my head hurts")
	if got := result.Slots["chief_complaint"]; got != "my head hurts" {
		t.Fatalf("expected capture into pending slot, got %q", got)
	}
	if !strings.Contains(result.Message, "How intense is it") {
		t.Fatalf("expected intensity question, got %q", result.Message)
	}
}

func TestFallbackLastSlotCompletes(t *testing.T) {
	defs := fallbackDefs()
	now := time.Now()
	session := domain.NewTriageSession("ses_1", "pk", defs, now)
	for _, id := range []string{"chief_complaint", "duration"} {
		if err := session.ApplyCapture(defs, id, "x", domain.CaptureSourceFallbackLiteral, now); err != nil {
			t.Fatalf("ApplyCapture failed: %v", err)
		}
	}

	result := Fallback(defs, session, "7")
	if got := result.Slots["intensity"]; got != "7" {
		t.Fatalf("expected intensity capture, got %q", got)
	}
	if result.Message != CompletionMessage {
		t.Fatalf("expected completion message, got %q", result.Message)
	}
}

func TestFallbackBlankTextReasksSameSlot(t *testing.T) {
	defs := fallbackDefs()
	session := domain.NewTriageSession("ses_1", "pk", defs, time.Now())

	result := Fallback(defs, session, "   ")
	if len(result.Slots) != 0 {
		t.Fatalf("blank text must not capture, got %v", result.Slots)
	}
	if !strings.Contains(result.Message, "What brings you in today?") {
		t.Fatalf("expected the same pending question, got %q", result.Message)
	}
}

func TestFallbackNoPendingSlots(t *testing.T) {
	defs := fallbackDefs()
	now := time.Now()
	session := domain.NewTriageSession("ses_1", "pk", defs, now)
	for _, d := range defs {
		if err := session.ApplyCapture(defs, d.ID, "x", domain.CaptureSourceFallbackLiteral, now); err != nil {
			t.Fatalf("ApplyCapture failed: %v", err)
		}
	}

	result := Fallback(defs, session, "anything")
	if len(result.Slots) != 0 {
		t.Fatalf("nothing to capture, got %v", result.Slots)
	}
	if result.Message != CompletionMessage {
		t.Fatalf("expected completion message, got %q", result.Message)
	}
}
