package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

// Retry returns a failed job to pending so it can be processed again.
func (s *Service) Retry(ctx context.Context, jobID uint64, actor string) error {
	return s.transition(ctx, jobID, actor, roster.StatusFailed, roster.StatusPending, "retried", "")
}

// Cancel abandons a job that is still being worked on.
func (s *Service) Cancel(ctx context.Context, jobID uint64, actor, reason string) error {
	return s.transition(ctx, jobID, actor, roster.StatusProcessing, roster.StatusCancelled, "cancelled", reason)
}

func (s *Service) transition(ctx context.Context, jobID uint64, actor string, from, to roster.JobStatus, action, reason string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if jobID == 0 {
		return errors.New("job id is required")
	}
	if err := roster.CheckTransition(from, to); err != nil {
		return err
	}
	if actor == "" {
		actor = "system"
	}

	now := s.nowString()
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateJobStatus(txCtx, jobID, from, to, reason); err != nil {
			return err
		}
		return s.repo.AppendAudit(txCtx, &ports.AuditEntry{
			JobID:     jobID,
			Actor:     actor,
			Action:    action,
			Detail:    reason,
			CreatedAt: now,
		})
	}); err != nil {
		return err
	}

	logging.Info(ctx, "job transitioned",
		slog.Uint64("job_id", jobID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	s.publish(ctx, jobID, string(to), action)
	return nil
}
