package pipeline

import (
	"context"
	"log/slog"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

// publish is best-effort: a broker failure never fails the transition that
// triggered it.
func (s *Service) publish(ctx context.Context, jobID uint64, status, detail string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, ports.Event{
		Subject: status,
		JobID:   jobID,
		Status:  status,
		Detail:  detail,
	})
	if err != nil {
		logging.Warn(ctx, "event publish failed",
			slog.Uint64("job_id", jobID),
			slog.String("status", status),
			slog.Any("error", errs.Loggable(err)),
		)
	}
}
