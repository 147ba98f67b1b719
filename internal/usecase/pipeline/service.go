// Package pipeline holds the job lifecycle usecases: ingest, process,
// review edits, rollback, export and the stuck-job sweep.
package pipeline

import (
	"time"

	"golang.org/x/sync/singleflight"

	"rosterflow/internal/domain/validate"
	"rosterflow/internal/extract"
	"rosterflow/internal/ports"
)

// Options are the tunables of one pipeline instance.
type Options struct {
	ConfidenceGate  float64
	AssistTimeout   time.Duration
	StuckAfter      time.Duration
	DuplicateWinner validate.DuplicateWinner
	ExportDir       string
}

func (o Options) stuckAfter() time.Duration {
	if o.StuckAfter <= 0 {
		return 3 * time.Minute
	}
	return o.StuckAfter
}

type Service struct {
	repo      ports.RosterRepository
	uow       ports.UnitOfWork
	extractor *extract.Extractor
	publisher ports.Publisher
	policies  *SenderPolicies
	opts      Options

	// processGroup collapses concurrent Process calls for the same job into
	// one run; later callers share the first caller's result.
	processGroup singleflight.Group

	// now is swappable in tests.
	nowFn func() time.Time
}

func NewService(
	repo ports.RosterRepository,
	uow ports.UnitOfWork,
	extractor *extract.Extractor,
	publisher ports.Publisher,
	policies *SenderPolicies,
	opts Options,
) *Service {
	if policies == nil {
		policies = EmptySenderPolicies()
	}
	return &Service{
		repo:      repo,
		uow:       uow,
		extractor: extractor,
		publisher: publisher,
		policies:  policies,
		opts:      opts,
		nowFn:     time.Now,
	}
}

func (s *Service) now() time.Time {
	return s.nowFn().UTC()
}

func (s *Service) nowString() string {
	return s.now().Format(ports.TimeLayout)
}
