package pipeline

import (
	"context"
	"errors"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

type JobDetail struct {
	Job      *ports.Job
	Versions []*ports.Version
	Records  []roster.Record
	Issues   []roster.Issue
	Exports  []*ports.Export
	Audit    []*ports.AuditEntry
}

func (s *Service) GetJob(ctx context.Context, jobID uint64) (*ports.Job, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	return s.repo.GetJob(ctx, jobID)
}

func (s *Service) ListJobs(ctx context.Context, filter ports.JobFilter) ([]*ports.Job, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	return s.repo.ListJobs(ctx, filter)
}

// JobDetail assembles the full review view of a job in one call.
func (s *Service) JobDetail(ctx context.Context, jobID uint64) (*JobDetail, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	detail := &JobDetail{Job: job}

	if detail.Versions, err = s.repo.ListVersions(ctx, jobID); err != nil {
		return nil, err
	}
	if job.CurrentVersionID != nil {
		if detail.Records, err = s.repo.ListRecords(ctx, *job.CurrentVersionID); err != nil {
			return nil, err
		}
		if detail.Issues, err = s.repo.ListIssues(ctx, *job.CurrentVersionID); err != nil {
			return nil, err
		}
	}
	if detail.Exports, err = s.repo.ListExports(ctx, jobID); err != nil {
		return nil, err
	}
	if detail.Audit, err = s.repo.ListAudit(ctx, jobID); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Service) ListVersions(ctx context.Context, jobID uint64) ([]*ports.Version, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, jobID)
}

func (s *Service) VersionRecords(ctx context.Context, jobID, versionID uint64) ([]roster.Record, []roster.Issue, error) {
	if ctx == nil {
		return nil, nil, errors.New("context is required")
	}
	version, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	if version.JobID != jobID {
		return nil, nil, roster.ErrVersionJobMismatch
	}
	records, err := s.repo.ListRecords(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	issues, err := s.repo.ListIssues(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	return records, issues, nil
}

func (s *Service) GetExport(ctx context.Context, exportID uint64) (*ports.Export, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	return s.repo.GetExport(ctx, exportID)
}

// Stats reports job counts per lifecycle state.
func (s *Service) Stats(ctx context.Context) (map[roster.JobStatus]int64, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	return s.repo.CountJobsByStatus(ctx)
}
