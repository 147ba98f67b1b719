package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/normalize"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/domain/validate"
	"rosterflow/internal/errs"
	"rosterflow/internal/extract"
	"rosterflow/internal/ports"
)

type ProcessInput struct {
	JobID uint64
	// Data overrides reading the document from its ref. Tests and HTTP
	// uploads use it; the inbox runner leaves it nil.
	Data []byte
}

type ProcessResult struct {
	JobID     uint64
	Status    roster.JobStatus
	VersionID uint64
	Rows      int
	Issues    int
	Escalated bool
	// Shared is true when this call piggybacked on a run already in flight.
	Shared bool
}

// Process runs the full pipeline for one job: extract, normalize, validate,
// version, transition. Concurrent calls for the same job collapse into a
// single run.
func (s *Service) Process(ctx context.Context, input ProcessInput) (*ProcessResult, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if input.JobID == 0 {
		return nil, errors.New("job id is required")
	}

	key := fmt.Sprintf("job:%d", input.JobID)
	value, err, shared := s.processGroup.Do(key, func() (any, error) {
		return s.processOne(ctx, input)
	})
	if err != nil {
		return nil, err
	}

	result := value.(*ProcessResult)
	if shared {
		copied := *result
		copied.Shared = true
		return &copied, nil
	}
	return result, nil
}

func (s *Service) processOne(ctx context.Context, input ProcessInput) (*ProcessResult, error) {
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "pipeline"),
		slog.Uint64("job_id", input.JobID),
	)

	job, err := s.repo.GetJob(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case roster.StatusPending, roster.StatusFailed:
		// proceed; processing a failed job clears its failure reason
	case roster.StatusProcessing:
		// Another run beat us between the singleflight key expiring and
		// the guarded transition. Treat as already running.
		logging.Info(logCtx, "job already processing, skipping")
		return &ProcessResult{JobID: job.ID, Status: job.Status, Shared: true}, nil
	default:
		return nil, errs.Wrapf(roster.ErrInvalidTransition, "job %d is %s", job.ID, job.Status)
	}

	startedAt := s.nowString()
	if err := s.repo.UpdateJobStatus(ctx, job.ID, job.Status, roster.StatusProcessing, ""); err != nil {
		return nil, err
	}
	if err := s.repo.MarkStarted(ctx, job.ID, startedAt); err != nil {
		return nil, err
	}
	s.publish(logCtx, job.ID, string(roster.StatusProcessing), "processing started")

	result, runErr := s.runStages(logCtx, job, input.Data)
	if runErr != nil {
		if failErr := s.failJob(logCtx, job.ID, runErr); failErr != nil {
			logging.Error(logCtx, "could not mark job failed", slog.Any("error", errs.Loggable(failErr)))
		}
		return nil, runErr
	}
	return result, nil
}

// runStages performs the pipeline stages and commits the outcome in one
// transaction.
func (s *Service) runStages(ctx context.Context, job *ports.Job, data []byte) (*ProcessResult, error) {
	timings := map[string]int64{}
	stage := func(name string, start time.Time) {
		timings[name] = time.Since(start).Milliseconds()
	}

	if data == nil {
		raw, err := os.ReadFile(job.DocumentRef)
		if err != nil {
			return nil, errs.Wrap(err, "read document")
		}
		data = raw
	}

	extractStart := s.now()
	extraction, err := s.extractor.Run(ctx, extract.Document{
		Ref:         job.DocumentRef,
		Sender:      job.Sender,
		ContentType: job.ContentType,
		Data:        data,
	})
	if err != nil {
		return nil, err
	}
	stage("extract", extractStart)

	normalizeStart := s.now()
	policy := s.policies.NormalizePolicy(job.Sender)
	rows := make([]roster.Record, 0, len(extraction.Records))
	var deltas []normalize.Delta
	for _, rec := range extraction.Records {
		fields, rowDeltas := normalize.Row(rec.Fields, rec.RowIndex, policy)
		rec.Fields = fields
		rows = append(rows, rec)
		deltas = append(deltas, rowDeltas...)
	}
	stage("normalize", normalizeStart)

	validateStart := s.now()
	issues := validate.Run(rows, deltas, validate.Config{
		Now:             s.now(),
		DuplicateWinner: s.opts.DuplicateWinner,
	})
	if extraction.Degraded {
		issues = append(issues, roster.Issue{
			Severity: roster.SeverityError,
			Message:  "extraction confidence below the gate and assist was unavailable",
		})
	}
	stage("validate", validateStart)

	target := roster.StatusReady
	if roster.HasErrors(issues) {
		target = roster.StatusNeedsReview
	}

	now := s.nowString()
	version := &ports.Version{
		JobID:     job.ID,
		Sequence:  1,
		Source:    "process",
		Author:    "system",
		CreatedAt: now,
	}
	// A rerun after failure builds on whatever version is current.
	if job.CurrentVersionID != nil {
		version.ParentID = job.CurrentVersionID
	}
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.ListVersions(txCtx, job.ID)
		if err != nil {
			return err
		}
		version.Sequence = len(existing) + 1
		if err := s.repo.CreateVersion(txCtx, version, rows, issues); err != nil {
			return err
		}
		if err := s.repo.SetCurrentVersion(txCtx, job.ID, version.ID); err != nil {
			return err
		}
		if err := s.repo.UpdateJobStatus(txCtx, job.ID, roster.StatusProcessing, target, ""); err != nil {
			return err
		}
		if err := s.repo.SetStageTimings(txCtx, job.ID, timings); err != nil {
			return err
		}
		if err := s.repo.MarkFinished(txCtx, job.ID, now); err != nil {
			return err
		}
		return s.repo.AppendAudit(txCtx, &ports.AuditEntry{
			JobID:     job.ID,
			Actor:     "system",
			Action:    string(target),
			Detail:    fmt.Sprintf("%d rows, %d issues, strategy %s", len(rows), len(issues), extraction.Strategy),
			CreatedAt: now,
		})
	}); err != nil {
		return nil, err
	}

	logging.Info(ctx, "job processed",
		slog.String("status", string(target)),
		slog.Uint64("version_id", version.ID),
		slog.Int("rows", len(rows)),
		slog.Int("issues", len(issues)),
		slog.Bool("escalated", extraction.Escalated),
	)
	s.publish(ctx, job.ID, string(target), fmt.Sprintf("version %d", version.ID))

	return &ProcessResult{
		JobID:     job.ID,
		Status:    target,
		VersionID: version.ID,
		Rows:      len(rows),
		Issues:    len(issues),
		Escalated: extraction.Escalated,
	}, nil
}

func (s *Service) failJob(ctx context.Context, jobID uint64, cause error) error {
	now := s.nowString()
	return s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateJobStatus(txCtx, jobID, roster.StatusProcessing, roster.StatusFailed, cause.Error()); err != nil {
			return err
		}
		if err := s.repo.MarkFinished(txCtx, jobID, now); err != nil {
			return err
		}
		if err := s.repo.AppendAudit(txCtx, &ports.AuditEntry{
			JobID:     jobID,
			Actor:     "system",
			Action:    string(roster.StatusFailed),
			Detail:    cause.Error(),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return nil
	})
}
