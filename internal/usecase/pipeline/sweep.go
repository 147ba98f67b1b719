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

type SweepResult struct {
	Failed []uint64
}

// SweepStuck fails jobs that have sat in processing beyond the stuck window.
// A worker crash mid-run leaves the row in processing forever otherwise.
func (s *Service) SweepStuck(ctx context.Context) (*SweepResult, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	cutoff := s.now().Add(-s.opts.stuckAfter()).Format(ports.TimeLayout)
	stuck, err := s.repo.ListProcessingBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, job := range stuck {
		now := s.nowString()
		err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.repo.UpdateJobStatus(txCtx, job.ID, roster.StatusProcessing, roster.StatusFailed, "processing timed out"); err != nil {
				return err
			}
			return s.repo.AppendAudit(txCtx, &ports.AuditEntry{
				JobID:     job.ID,
				Actor:     "sweeper",
				Action:    string(roster.StatusFailed),
				Detail:    "processing timed out",
				CreatedAt: now,
			})
		})
		if err != nil {
			// The run may have finished between listing and the guarded
			// update. Skip, the guard did its job.
			if errors.Is(err, roster.ErrInvalidTransition) {
				continue
			}
			return nil, err
		}
		result.Failed = append(result.Failed, job.ID)
		s.publish(ctx, job.ID, string(roster.StatusFailed), "processing timed out")
	}

	if len(result.Failed) > 0 {
		logging.Warn(ctx, "stuck jobs failed by sweep",
			slog.Int("count", len(result.Failed)),
		)
	}
	return result, nil
}
