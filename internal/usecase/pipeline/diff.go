package pipeline

import (
	"context"
	"errors"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
)

// DiffVersions computes the field-level changes between two versions of the
// same job.
func (s *Service) DiffVersions(ctx context.Context, jobID, fromVersion, toVersion uint64) ([]roster.Change, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	for _, versionID := range []uint64{fromVersion, toVersion} {
		version, err := s.repo.GetVersion(ctx, versionID)
		if err != nil {
			return nil, err
		}
		if version.JobID != jobID {
			return nil, errs.Wrapf(roster.ErrVersionJobMismatch, "version %d belongs to job %d", versionID, version.JobID)
		}
	}

	before, err := s.repo.ListRecords(ctx, fromVersion)
	if err != nil {
		return nil, err
	}
	after, err := s.repo.ListRecords(ctx, toVersion)
	if err != nil {
		return nil, err
	}
	return roster.Diff(before, after), nil
}
