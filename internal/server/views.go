package server

import (
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/ports"
	"rosterflow/internal/usecase/pipeline"
)

// Wire views. The ports structs stay JSON-tag free; the HTTP shapes live here
// so persistence can evolve without breaking clients.

type jobView struct {
	ID               uint64           `json:"id"`
	DocumentRef      string           `json:"document_ref"`
	Sender           string           `json:"sender,omitempty"`
	ContentType      string           `json:"content_type"`
	Status           string           `json:"status"`
	CurrentVersionID *uint64          `json:"current_version_id,omitempty"`
	FailureReason    string           `json:"failure_reason,omitempty"`
	StageTimings     map[string]int64 `json:"stage_timings,omitempty"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	StartedAt        string           `json:"started_at,omitempty"`
	FinishedAt       string           `json:"finished_at,omitempty"`
}

func toJobView(j *ports.Job) jobView {
	return jobView{
		ID:               j.ID,
		DocumentRef:      j.DocumentRef,
		Sender:           j.Sender,
		ContentType:      string(j.ContentType),
		Status:           string(j.Status),
		CurrentVersionID: j.CurrentVersionID,
		FailureReason:    j.FailureReason,
		StageTimings:     j.StageTimings,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
		StartedAt:        j.StartedAt,
		FinishedAt:       j.FinishedAt,
	}
}

func toJobViews(jobs []*ports.Job) []jobView {
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobView(j))
	}
	return out
}

type versionView struct {
	ID        uint64  `json:"id"`
	JobID     uint64  `json:"job_id"`
	Sequence  int     `json:"sequence"`
	Source    string  `json:"source"`
	Author    string  `json:"author,omitempty"`
	ParentID  *uint64 `json:"parent_id,omitempty"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toVersionViews(versions []*ports.Version) []versionView {
	out := make([]versionView, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionView{
			ID:        v.ID,
			JobID:     v.JobID,
			Sequence:  v.Sequence,
			Source:    v.Source,
			Author:    v.Author,
			ParentID:  v.ParentID,
			Note:      v.Note,
			CreatedAt: v.CreatedAt,
		})
	}
	return out
}

type recordView struct {
	RowIndex   int               `json:"row_index"`
	Fields     map[string]string `json:"fields"`
	Confidence float64           `json:"confidence"`
	Method     string            `json:"method"`
}

func toRecordViews(records []roster.Record) []recordView {
	out := make([]recordView, 0, len(records))
	for _, rec := range records {
		out = append(out, recordView{
			RowIndex:   rec.RowIndex,
			Fields:     rec.Fields,
			Confidence: rec.Confidence,
			Method:     string(rec.Method),
		})
	}
	return out
}

type issueView struct {
	RowIndex     *int   `json:"row_index,omitempty"`
	Field        string `json:"field,omitempty"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

func toIssueViews(issues []roster.Issue) []issueView {
	out := make([]issueView, 0, len(issues))
	for _, is := range issues {
		out = append(out, issueView{
			RowIndex:     is.RowIndex,
			Field:        is.Field,
			Severity:     string(is.Severity),
			Message:      is.Message,
			SuggestedFix: is.SuggestedFix,
		})
	}
	return out
}

type exportView struct {
	ID        uint64 `json:"id"`
	JobID     uint64 `json:"job_id"`
	VersionID uint64 `json:"version_id"`
	Path      string `json:"path"`
	Checksum  string `json:"checksum"`
	RowCount  int    `json:"row_count"`
	CreatedAt string `json:"created_at"`
}

func toExportViews(exports []*ports.Export) []exportView {
	out := make([]exportView, 0, len(exports))
	for _, e := range exports {
		out = append(out, exportView{
			ID:        e.ID,
			JobID:     e.JobID,
			VersionID: e.VersionID,
			Path:      e.Path,
			Checksum:  e.Checksum,
			RowCount:  e.RowCount,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

type auditView struct {
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toAuditViews(entries []*ports.AuditEntry) []auditView {
	out := make([]auditView, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditView{
			Actor:     e.Actor,
			Action:    e.Action,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

type changeView struct {
	Kind     string `json:"kind"`
	RowIndex int    `json:"row_index"`
	Field    string `json:"field,omitempty"`
	Before   string `json:"before,omitempty"`
	After    string `json:"after,omitempty"`
}

func toChangeViews(changes []roster.Change) []changeView {
	out := make([]changeView, 0, len(changes))
	for _, c := range changes {
		out = append(out, changeView{
			Kind:     string(c.Kind),
			RowIndex: c.RowIndex,
			Field:    c.Field,
			Before:   c.Before,
			After:    c.After,
		})
	}
	return out
}

type jobDetailView struct {
	Job      jobView       `json:"job"`
	Versions []versionView `json:"versions"`
	Records  []recordView  `json:"records"`
	Issues   []issueView   `json:"issues"`
	Exports  []exportView  `json:"exports"`
	Audit    []auditView   `json:"audit"`
}

func toJobDetailView(d *pipeline.JobDetail) jobDetailView {
	return jobDetailView{
		Job:      toJobView(d.Job),
		Versions: toVersionViews(d.Versions),
		Records:  toRecordViews(d.Records),
		Issues:   toIssueViews(d.Issues),
		Exports:  toExportViews(d.Exports),
		Audit:    toAuditViews(d.Audit),
	}
}
