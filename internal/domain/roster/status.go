package roster

import "fmt"

// JobStatus is the canonical job lifecycle state. Stable values, stored as-is.
type JobStatus string

const (
	StatusPending     JobStatus = "pending"
	StatusProcessing  JobStatus = "processing"
	StatusNeedsReview JobStatus = "needs_review"
	StatusReady       JobStatus = "ready"
	StatusExported    JobStatus = "exported"
	StatusFailed      JobStatus = "failed"
	StatusCancelled   JobStatus = "cancelled"
)

var transitions = map[JobStatus][]JobStatus{
	StatusPending:     {StatusProcessing},
	StatusProcessing:  {StatusNeedsReview, StatusReady, StatusFailed, StatusCancelled},
	StatusNeedsReview: {StatusExported},
	StatusReady:       {StatusExported},
	// failed retries either explicitly (back to pending) or by a direct
	// Process call picking it up again.
	StatusFailed: {StatusPending, StatusProcessing},
	// exported and cancelled are terminal
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition with both states named.
func CheckTransition(from, to JobStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether no further transitions exist.
func IsTerminal(s JobStatus) bool {
	return len(transitions[s]) == 0
}
