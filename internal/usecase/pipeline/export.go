package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/exporter"
	"rosterflow/internal/ports"
)

type ExportInput struct {
	JobID uint64
	Actor string
}

type ExportResult struct {
	ExportID  uint64
	VersionID uint64
	Path      string
	Checksum  string
	RowCount  int
}

// Export renders the current version as a workbook, persists it and records
// the checksum binding. Jobs export from needs_review or ready; re-exporting
// an already exported job cuts a fresh file from the current version.
func (s *Service) Export(ctx context.Context, input ExportInput) (*ExportResult, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if input.JobID == 0 {
		return nil, errors.New("job id is required")
	}
	actor := input.Actor
	if actor == "" {
		actor = "system"
	}

	job, err := s.repo.GetJob(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if job.CurrentVersionID == nil {
		return nil, roster.ErrNoCurrentVersion
	}
	switch job.Status {
	case roster.StatusNeedsReview, roster.StatusReady, roster.StatusExported:
	default:
		return nil, errs.Wrapf(roster.ErrInvalidTransition, "job %d is %s, not exportable", job.ID, job.Status)
	}

	versionID := *job.CurrentVersionID
	records, err := s.repo.ListRecords(ctx, versionID)
	if err != nil {
		return nil, err
	}

	now := s.nowString()
	workbook, err := exporter.Render(records, exporter.Provenance{
		JobID:        job.ID,
		VersionID:    versionID,
		DocumentRef:  job.DocumentRef,
		ExportedAt:   now,
		StageTimings: job.StageTimings,
	})
	if err != nil {
		return nil, err
	}

	dir := s.opts.ExportDir
	if dir == "" {
		dir = "exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create export directory")
	}
	path := filepath.Join(dir, fmt.Sprintf("job-%d-v%d-%s.xlsx", job.ID, versionID, workbook.Checksum[:12]))
	if err := os.WriteFile(path, workbook.Data, 0o644); err != nil {
		return nil, errs.Wrap(err, "write workbook")
	}

	export := &ports.Export{
		JobID:     job.ID,
		VersionID: versionID,
		Path:      path,
		Checksum:  workbook.Checksum,
		RowCount:  workbook.RowCount,
		CreatedAt: now,
	}
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateExport(txCtx, export); err != nil {
			return err
		}
		if job.Status != roster.StatusExported {
			if err := s.repo.UpdateJobStatus(txCtx, job.ID, job.Status, roster.StatusExported, ""); err != nil {
				return err
			}
		}
		return s.repo.AppendAudit(txCtx, &ports.AuditEntry{
			JobID:     job.ID,
			Actor:     actor,
			Action:    "exported",
			Detail:    fmt.Sprintf("version %d, checksum %s", versionID, workbook.Checksum),
			CreatedAt: now,
		})
	}); err != nil {
		return nil, err
	}

	logging.Info(ctx, "job exported",
		slog.Uint64("job_id", job.ID),
		slog.Uint64("version_id", versionID),
		slog.String("path", path),
		slog.String("checksum", workbook.Checksum),
	)
	s.publish(ctx, job.ID, string(roster.StatusExported), workbook.Checksum)

	return &ExportResult{
		ExportID:  export.ID,
		VersionID: versionID,
		Path:      path,
		Checksum:  workbook.Checksum,
		RowCount:  workbook.RowCount,
	}, nil
}
