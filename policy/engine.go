// Package policy decides the review route for finished sessions. The
// decision is advisory routing for the human review queue; it never
// changes session status.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Dispositions the default policy can return.
const (
	DispositionEscalate       = "escalate"
	DispositionPriorityReview = "priority_review"
	DispositionRoutineReview  = "routine_review"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.triage_disposition.decision"),
		rego.Module("triage_disposition.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate decides the disposition for a finished session.
// Input keys: emergency (bool), indicators ([]string), slots (map of
// slot_id -> value). Returns the decision string.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DispositionRoutineReview, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DispositionRoutineReview, nil
}

// DefaultPolicy is the default disposition policy content.
const DefaultPolicy = `
package triage_disposition

default decision = "routine_review"

decision = "escalate" {
	input.emergency == true
}

decision = "priority_review" {
	not input.emergency == true
	to_number(input.slots.intensity) >= 8
}
`
