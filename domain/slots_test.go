package domain

import (
	"testing"
	"time"
)

func testDefs() []SlotDefinition {
	return []SlotDefinition{
		{ID: "a", Question: "A?", Ordinal: 0},
		{ID: "b", Question: "B?", Ordinal: 1},
		{ID: "c", Question: "C?", Ordinal: 2, Validation: &RangeRule{Min: 0, Max: 10}},
	}
}

func TestPendingSlotOrder(t *testing.T) {
	defs := testDefs()
	now := time.Now()
	s := NewTriageSession("ses_1", "pk", defs, now)

	pending, ok := s.PendingSlot(defs)
	if !ok || pending.ID != "a" {
		t.Fatalf("expected pending slot a, got %v %v", pending.ID, ok)
	}

	if err := s.ApplyCapture(defs, "a", "first", CaptureSourceFallbackLiteral, now); err != nil {
		t.Fatalf("ApplyCapture failed: %v", err)
	}

	pending, ok = s.PendingSlot(defs)
	if !ok || pending.ID != "b" {
		t.Fatalf("expected pending slot b, got %v %v", pending.ID, ok)
	}

	// Filling a later slot must not skip the earlier unfilled one.
	if err := s.ApplyCapture(defs, "c", "5", CaptureSourceExtracted, now); err != nil {
		t.Fatalf("ApplyCapture failed: %v", err)
	}
	pending, ok = s.PendingSlot(defs)
	if !ok || pending.ID != "b" {
		t.Fatalf("expected pending slot b after filling c, got %v %v", pending.ID, ok)
	}
}

func TestApplyCaptureNoOverwrite(t *testing.T) {
	defs := testDefs()
	now := time.Now()
	s := NewTriageSession("ses_1", "pk", defs, now)

	if err := s.ApplyCapture(defs, "a", "original", CaptureSourceExtracted, now); err != nil {
		t.Fatalf("ApplyCapture failed: %v", err)
	}
	if err := s.ApplyCapture(defs, "a", "replacement", CaptureSourceFallbackLiteral, now.Add(time.Minute)); err != nil {
		t.Fatalf("duplicate capture should be a no-op, got error: %v", err)
	}

	if got := *s.Slots[0].Value; got != "original" {
		t.Fatalf("value overwritten: %q", got)
	}
	if s.Slots[0].Source != CaptureSourceExtracted {
		t.Fatalf("source overwritten: %q", s.Slots[0].Source)
	}
}

func TestApplyCaptureUnknownSlot(t *testing.T) {
	defs := testDefs()
	s := NewTriageSession("ses_1", "pk", defs, time.Now())

	err := s.ApplyCapture(defs, "nope", "x", CaptureSourceExtracted, time.Now())
	if err != ErrUnknownSlot {
		t.Fatalf("expected ErrUnknownSlot, got %v", err)
	}
	if s.FilledCount() != 0 {
		t.Fatalf("state corrupted by rejected capture")
	}
}

func TestIsComplete(t *testing.T) {
	defs := testDefs()
	now := time.Now()
	s := NewTriageSession("ses_1", "pk", defs, now)

	if s.IsComplete() {
		t.Fatalf("fresh session should not be complete")
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := s.ApplyCapture(defs, id, "v", CaptureSourceFallbackLiteral, now); err != nil {
			t.Fatalf("ApplyCapture failed: %v", err)
		}
	}
	if !s.IsComplete() {
		t.Fatalf("session with all slots filled should be complete")
	}
}

func TestValidCapture(t *testing.T) {
	def := SlotDefinition{ID: "intensity", Validation: &RangeRule{Min: 0, Max: 10}}

	cases := []struct {
		value string
		want  bool
	}{
		{"7", true},
		{"0", true},
		{"10", true},
		{"11", false},
		{"-1", false},
		{"unbearable", true}, // non-numeric answers pass through
		{"", false},
		{"   ", false},
	}
	for _, tc := range cases {
		if got := def.ValidCapture(tc.value); got != tc.want {
			t.Errorf("ValidCapture(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestPatientKeyStableAndOpaque(t *testing.T) {
	k1 := PatientKey("salt", "+1 (555) 123-4567")
	k2 := PatientKey("salt", "15551234567")
	if k1 != k2 {
		t.Fatalf("formatting variants of the same number should hash equal")
	}
	if k1 == "15551234567" || len(k1) != 64 {
		t.Fatalf("patient key must be an opaque hash, got %q", k1)
	}
	if PatientKey("other-salt", "15551234567") == k1 {
		t.Fatalf("salt must change the key")
	}
}
