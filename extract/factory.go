package extract

import (
	"log"
	"os"
	"time"
)

const (
	// EnvTriageMode is the environment variable name for mode selection.
	EnvTriageMode = "TRIAGE_MODE"
	// ModeMock indicates the mock extractor should be used.
	ModeMock = "MOCK"
)

// NewExtractor creates an extractor based on the TRIAGE_MODE environment
// variable. If TRIAGE_MODE=MOCK, returns a MockExtractor; otherwise
// returns a real Client.
func NewExtractor(baseURL, apiKey, model string, timeout time.Duration) Extractor {
	if os.Getenv(EnvTriageMode) == ModeMock {
		log.Println("TRIAGE_MODE=MOCK detected, using mock extractor")
		return NewMockExtractor()
	}
	return NewClient(baseURL, apiKey, model, timeout)
}
