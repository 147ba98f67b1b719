package roster

import "errors"

// Pipeline-level failures. Per-field and per-row problems are Issues, not errors.
var (
	ErrExtractionExhausted = errors.New("no extraction strategy produced rows")
	ErrAssistTimeout       = errors.New("assist extraction timed out")
	ErrAssistDisabled      = errors.New("assist extraction is disabled")
	ErrNoStrategy          = errors.New("no extraction strategy for content type")

	ErrJobNotFound        = errors.New("job not found")
	ErrVersionNotFound    = errors.New("version not found")
	ErrExportNotFound     = errors.New("export not found")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrVersionJobMismatch = errors.New("version does not belong to job")
	ErrNoCurrentVersion   = errors.New("job has no current version")
	ErrUnknownColumn      = errors.New("unknown schema column")
)
