// Package extract provides the two extraction paths: the bounded
// natural-language client and the deterministic fallback that backstops
// it. Exactly one of them produces the outbound text for every
// non-emergency turn.
package extract

import (
	"context"
	"fmt"

	"github.com/opencare/triage/domain"
)

// FailureReason classifies why an extraction attempt produced nothing
// usable. Every reason is non-fatal and recovered by the fallback path.
type FailureReason string

const (
	ReasonTimeout   FailureReason = "timeout"
	ReasonMalformed FailureReason = "malformed_output"
	ReasonRefused   FailureReason = "refused"
)

// Failure is the error type for extraction attempts.
type Failure struct {
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("extraction failed (%s)", f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Extractor is the primary extraction capability. One call per inbound
// message; the orchestrator never retries a failed call.
type Extractor interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error)
}

// WelcomeMessage opens a fresh session. It states what the assistant is
// and is not, per intake policy.
const WelcomeMessage = "Hello! I'm the clinic's virtual intake assistant. " +
	"I'll ask a few questions to prepare your information for the care team. " +
	"Please note I'm not a medical professional and this does not replace " +
	"a professional evaluation."

// CompletionMessage closes a session once every slot is filled.
const CompletionMessage = "Thank you, your intake is complete. A member of " +
	"our clinical team will review your information and follow up with you shortly."
