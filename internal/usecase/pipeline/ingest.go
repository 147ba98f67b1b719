package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

type IngestInput struct {
	DocumentRef string
	Sender      string
	ContentType roster.ContentType
}

// Ingest registers an inbound document as a pending job. Processing is a
// separate step so callers can batch or defer it.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (*ports.Job, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	ref := strings.TrimSpace(input.DocumentRef)
	if ref == "" {
		return nil, errors.New("document ref is required")
	}
	if input.ContentType == "" {
		return nil, errors.New("content type is required")
	}

	now := s.nowString()
	job := &ports.Job{
		DocumentRef: ref,
		Sender:      strings.TrimSpace(input.Sender),
		ContentType: input.ContentType,
		Status:      roster.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateJob(txCtx, job); err != nil {
			return err
		}
		return s.repo.AppendAudit(txCtx, &ports.AuditEntry{
			JobID:     job.ID,
			Actor:     "system",
			Action:    "ingested",
			Detail:    ref,
			CreatedAt: now,
		})
	}); err != nil {
		return nil, err
	}

	logging.Info(ctx, "job ingested",
		slog.Uint64("job_id", job.ID),
		slog.String("document_ref", ref),
		slog.String("sender", job.Sender),
		slog.String("content_type", string(job.ContentType)),
	)
	s.publish(ctx, job.ID, string(roster.StatusPending), "ingested")
	return job, nil
}
