// Package events publishes job lifecycle notifications. Delivery is
// best-effort everywhere: a broker outage must never fail or delay a
// pipeline transition.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

// envelope is the wire shape. The event id lets consumers deduplicate
// across reconnect replays.
type envelope struct {
	EventID    string `json:"event_id"`
	JobID      uint64 `json:"job_id"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATS connects to the broker. Subject prefix defaults to "roster.jobs".
func NewNATS(url, subjectPrefix string) (*NATSPublisher, error) {
	if subjectPrefix == "" {
		subjectPrefix = "roster.jobs"
	}
	conn, err := nats.Connect(url,
		nats.Name("rosterflow"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NATSPublisher{conn: conn, subject: subjectPrefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, ev ports.Event) error {
	payload, err := json.Marshal(envelope{
		EventID:    uuid.NewString(),
		JobID:      ev.JobID,
		Status:     ev.Status,
		Detail:     ev.Detail,
		OccurredAt: time.Now().UTC().Format(ports.TimeLayout),
	})
	if err != nil {
		return errs.Wrap(err, "encode event")
	}

	subject := p.subject
	if ev.Subject != "" {
		subject = p.subject + "." + ev.Subject
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return errs.Wrap(err, "publish event")
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	err := p.conn.Drain()
	p.conn.Close()
	return err
}

// Noop is the publisher used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, ports.Event) error { return nil }
func (Noop) Close() error                               { return nil }
