package extract

import (
	"context"
	"fmt"

	"github.com/opencare/triage/domain"
)

// MockExtractor is a canned implementation for local development. It
// captures the raw text into the pending slot, like the fallback path,
// but through the Extractor interface so the orchestrator's extraction
// branch is exercised.
type MockExtractor struct{}

// NewMockExtractor creates a new mock extractor.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

var _ Extractor = (*MockExtractor)(nil)

// Extract returns a deterministic mock result.
func (m *MockExtractor) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Failure{Reason: ReasonTimeout, Err: err}
	}
	result := &domain.ExtractionResult{
		Message: "[MOCK] Noted. Could you tell me a bit more?",
		Slots:   map[string]string{},
	}
	if req.Pending != "" && req.Text != "" {
		result.Slots[req.Pending] = req.Text
		result.Message = fmt.Sprintf("[MOCK] Recorded %q. What else can you share?", req.Pending)
	}
	return result, nil
}
