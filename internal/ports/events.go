package ports

import "context"

// Event is a lifecycle notification published after a job changes state.
type Event struct {
	Subject string
	JobID   uint64
	Status  string
	Detail  string
}

// Publisher fans job lifecycle events out to interested systems. Publishing
// is best-effort: a failed publish never fails the transition that caused it.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}
