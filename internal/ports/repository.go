package ports

import (
	"context"

	"rosterflow/internal/domain/roster"
)

// Job is the persisted lifecycle record for one ingested document.
// Timestamps are RFC3339Nano strings so sqlite stores them losslessly.
type Job struct {
	ID               uint64
	DocumentRef      string
	Sender           string
	ContentType      roster.ContentType
	Status           roster.JobStatus
	CurrentVersionID *uint64
	FailureReason    string
	StageTimings     map[string]int64 // stage name -> elapsed milliseconds
	CreatedAt        string
	UpdatedAt        string
	StartedAt        string
	FinishedAt       string
}

// Version is one immutable snapshot of a job's record set. Versions are
// append-only: edits create new ones, rollbacks repoint the current marker.
type Version struct {
	ID        uint64
	JobID     uint64
	Sequence  int
	Source    string // "process" or "manual-edit"
	Author    string // system or reviewer identity
	ParentID  *uint64
	Note      string
	CreatedAt string
}

// Export records a completed workbook export and the checksum it is bound to.
type Export struct {
	ID        uint64
	JobID     uint64
	VersionID uint64
	Path      string
	Checksum  string
	RowCount  int
	CreatedAt string
}

// AuditEntry is one append-only line in a job's history.
type AuditEntry struct {
	ID        uint64
	JobID     uint64
	Actor     string
	Action    string
	Detail    string
	CreatedAt string
}

// JobFilter narrows ListJobs. Zero values mean "no constraint".
type JobFilter struct {
	Status roster.JobStatus
	Sender string
	Limit  int
	Offset int
}

// RosterRepository is the persistence port for jobs, versions, records,
// issues, exports and audit history. Implementations honor the Tx-in-context
// convention: when a transaction handle is present they must use it.
type RosterRepository interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id uint64) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id uint64, from, to roster.JobStatus, reason string) error
	SetCurrentVersion(ctx context.Context, jobID, versionID uint64) error
	SetStageTimings(ctx context.Context, jobID uint64, timings map[string]int64) error
	MarkStarted(ctx context.Context, jobID uint64, at string) error
	MarkFinished(ctx context.Context, jobID uint64, at string) error

	// ListProcessingBefore returns jobs still in processing whose last
	// update is older than the cutoff. The stuck sweep feeds on this.
	ListProcessingBefore(ctx context.Context, cutoff string) ([]*Job, error)
	CountJobsByStatus(ctx context.Context) (map[roster.JobStatus]int64, error)

	CreateVersion(ctx context.Context, v *Version, records []roster.Record, issues []roster.Issue) error
	GetVersion(ctx context.Context, id uint64) (*Version, error)
	ListVersions(ctx context.Context, jobID uint64) ([]*Version, error)
	ListRecords(ctx context.Context, versionID uint64) ([]roster.Record, error)
	ListIssues(ctx context.Context, versionID uint64) ([]roster.Issue, error)

	CreateExport(ctx context.Context, e *Export) error
	GetExport(ctx context.Context, id uint64) (*Export, error)
	ListExports(ctx context.Context, jobID uint64) ([]*Export, error)

	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, jobID uint64) ([]*AuditEntry, error)
}
