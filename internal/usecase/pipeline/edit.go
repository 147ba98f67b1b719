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

type FieldEdit struct {
	RowIndex int
	Field    string
	Value    string
}

type EditInput struct {
	JobID uint64
	Actor string
	Note  string
	Edits []FieldEdit
}

type EditResult struct {
	VersionID uint64
	Sequence  int
	Changes   []roster.Change
}

// Edit applies reviewer corrections as a new version on top of the current
// one. The job status does not change: review completion is signalled by
// export, not by editing.
func (s *Service) Edit(ctx context.Context, input EditInput) (*EditResult, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if input.JobID == 0 {
		return nil, errors.New("job id is required")
	}
	if len(input.Edits) == 0 {
		return nil, errors.New("at least one edit is required")
	}
	actor := input.Actor
	if actor == "" {
		actor = "reviewer"
	}
	for _, edit := range input.Edits {
		if !roster.IsColumn(edit.Field) {
			return nil, errs.Wrapf(roster.ErrUnknownColumn, "%q", edit.Field)
		}
	}

	now := s.nowString()
	result := &EditResult{}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		job, err := s.repo.GetJob(txCtx, input.JobID)
		if err != nil {
			return err
		}
		if job.CurrentVersionID == nil {
			return roster.ErrNoCurrentVersion
		}
		if job.Status != roster.StatusNeedsReview && job.Status != roster.StatusReady {
			return errs.Wrapf(roster.ErrInvalidTransition, "job %d is %s, not editable", job.ID, job.Status)
		}

		before, err := s.repo.ListRecords(txCtx, *job.CurrentVersionID)
		if err != nil {
			return err
		}

		after := roster.CloneRecords(before)
		byIndex := make(map[int]*roster.Record, len(after))
		for i := range after {
			byIndex[after[i].RowIndex] = &after[i]
		}
		for _, edit := range input.Edits {
			rec, ok := byIndex[edit.RowIndex]
			if !ok {
				return fmt.Errorf("row %d not in current version", edit.RowIndex)
			}
			rec.Fields[edit.Field] = edit.Value
			rec.Method = roster.MethodManual
		}

		issues, err := s.revalidate(after, job.Sender)
		if err != nil {
			return err
		}

		versions, err := s.repo.ListVersions(txCtx, job.ID)
		if err != nil {
			return err
		}
		version := &ports.Version{
			JobID:     job.ID,
			Sequence:  len(versions) + 1,
			Source:    "manual-edit",
			Author:    actor,
			ParentID:  job.CurrentVersionID,
			Note:      input.Note,
			CreatedAt: now,
		}
		if err := s.repo.CreateVersion(txCtx, version, after, issues); err != nil {
			return err
		}
		if err := s.repo.SetCurrentVersion(txCtx, job.ID, version.ID); err != nil {
			return err
		}
		if err := s.repo.AppendAudit(txCtx, &ports.AuditEntry{
			JobID:     job.ID,
			Actor:     actor,
			Action:    "edited",
			Detail:    fmt.Sprintf("%d field(s), version %d", len(input.Edits), version.Sequence),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result.VersionID = version.ID
		result.Sequence = version.Sequence
		result.Changes = roster.Diff(before, after)
		return nil
	}); err != nil {
		return nil, err
	}

	logging.Info(ctx, "job edited",
		slog.Uint64("job_id", input.JobID),
		slog.Uint64("version_id", result.VersionID),
		slog.Int("changes", len(result.Changes)),
	)
	return result, nil
}
