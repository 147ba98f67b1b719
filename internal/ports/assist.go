package ports

import (
	"context"

	"rosterflow/internal/domain/roster"
)

// AssistRequest carries the raw document text handed to the model when
// deterministic extraction falls short of the confidence gate.
type AssistRequest struct {
	DocumentRef string
	ContentType roster.ContentType
	Text        string
	// RuleRows are the low-confidence rows already extracted. Passed along
	// so the model repairs rather than hallucinates from scratch.
	RuleRows []roster.Record
}

// Assist is the model-backed extraction port. Implementations must respect
// ctx cancellation; the caller enforces the deadline.
type Assist interface {
	Infer(ctx context.Context, req AssistRequest) ([]roster.Record, error)
	Enabled() bool
}
