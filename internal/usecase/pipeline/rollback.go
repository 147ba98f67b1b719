package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

type RollbackInput struct {
	JobID     uint64
	VersionID uint64
	Actor     string
}

type RollbackResult struct {
	VersionID uint64
	Sequence  int
}

// Rollback repoints the job's current version at an earlier snapshot.
// History is untouched: no version is created, deleted or mutated, so
// rolling forward again is just another rollback.
func (s *Service) Rollback(ctx context.Context, input RollbackInput) (*RollbackResult, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if input.JobID == 0 || input.VersionID == 0 {
		return nil, errors.New("job id and version id are required")
	}
	actor := input.Actor
	if actor == "" {
		actor = "reviewer"
	}

	now := s.nowString()
	result := &RollbackResult{}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		job, err := s.repo.GetJob(txCtx, input.JobID)
		if err != nil {
			return err
		}
		target, err := s.repo.GetVersion(txCtx, input.VersionID)
		if err != nil {
			return err
		}
		if target.JobID != job.ID {
			return errs.Wrapf(roster.ErrVersionJobMismatch, "version %d belongs to job %d", target.ID, target.JobID)
		}

		result.VersionID = target.ID
		result.Sequence = target.Sequence

		if job.CurrentVersionID != nil && *job.CurrentVersionID == target.ID {
			// Rolling back to the current version is a no-op.
			return nil
		}

		if err := s.repo.SetCurrentVersion(txCtx, job.ID, target.ID); err != nil {
			return err
		}
		return s.repo.AppendAudit(txCtx, &ports.AuditEntry{
			JobID:     job.ID,
			Actor:     actor,
			Action:    "rolled_back",
			Detail:    fmt.Sprintf("current version set to %d (sequence %d)", target.ID, target.Sequence),
			CreatedAt: now,
		})
	}); err != nil {
		return nil, err
	}

	logging.Info(ctx, "job rolled back",
		slog.Uint64("job_id", input.JobID),
		slog.Uint64("version_id", result.VersionID),
	)
	return result, nil
}
