package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/infrastructure/persistence/sqlite/model"
	"rosterflow/internal/ports"
)

type RosterRepository struct {
	db *gorm.DB
}

func NewRosterRepository(db *gorm.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *RosterRepository) CreateJob(ctx context.Context, job *ports.Job) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Job{
		DocumentRef:      job.DocumentRef,
		Sender:           job.Sender,
		ContentType:      string(job.ContentType),
		Status:           string(job.Status),
		FailureReason:    job.FailureReason,
		StageTimingsJSON: encodeTimings(job.StageTimings),
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert job")
	}
	job.ID = row.JobID
	return nil
}

func (r *RosterRepository) GetJob(ctx context.Context, id uint64) (*ports.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row model.Job
	if err := db.Where("job_id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, roster.ErrJobNotFound
		}
		return nil, errs.Wrap(err, "query job")
	}
	return mapJob(row), nil
}

func (r *RosterRepository) ListJobs(ctx context.Context, filter ports.JobFilter) ([]*ports.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Job{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Sender != "" {
		query = query.Where("sender = ?", filter.Sender)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []model.Job
	if err := query.Order("job_id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query jobs")
	}

	items := make([]*ports.Job, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapJob(row))
	}
	return items, nil
}

// UpdateJobStatus is a guarded transition: the WHERE clause re-checks the
// from-status so concurrent writers cannot race past the state machine.
func (r *RosterRepository) UpdateJobStatus(ctx context.Context, id uint64, from, to roster.JobStatus, reason string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	now := ports.Now()
	result := db.Model(&model.Job{}).
		Where("job_id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":         string(to),
			"failure_reason": reason,
			"updated_at":     now,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update job status")
	}
	if result.RowsAffected == 0 {
		current, err := r.GetJob(ctx, id)
		if err != nil {
			return err
		}
		return errs.Wrapf(roster.ErrInvalidTransition, "job %d is %s, not %s", id, current.Status, from)
	}
	return nil
}

func (r *RosterRepository) SetCurrentVersion(ctx context.Context, jobID, versionID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Job{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{
			"current_version_id": versionID,
			"updated_at":         ports.Now(),
		}).Error; err != nil {
		return errs.Wrap(err, "update current version")
	}
	return nil
}

func (r *RosterRepository) SetStageTimings(ctx context.Context, jobID uint64, timings map[string]int64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Job{}).
		Where("job_id = ?", jobID).
		Update("stage_timings_json", encodeTimings(timings)).Error; err != nil {
		return errs.Wrap(err, "update stage timings")
	}
	return nil
}

func (r *RosterRepository) MarkStarted(ctx context.Context, jobID uint64, at string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Job{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{"started_at": at, "updated_at": at}).Error; err != nil {
		return errs.Wrap(err, "mark job started")
	}
	return nil
}

func (r *RosterRepository) MarkFinished(ctx context.Context, jobID uint64, at string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Job{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{"finished_at": at, "updated_at": at}).Error; err != nil {
		return errs.Wrap(err, "mark job finished")
	}
	return nil
}

func (r *RosterRepository) ListProcessingBefore(ctx context.Context, cutoff string) ([]*ports.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// Keyed on updated_at, not started_at: the guarded transition always
	// touches updated_at, so a worker that crashed before MarkStarted still
	// shows up here.
	var rows []model.Job
	if err := db.
		Where("status = ? AND updated_at < ?", string(roster.StatusProcessing), cutoff).
		Order("job_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query stuck jobs")
	}

	items := make([]*ports.Job, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapJob(row))
	}
	return items, nil
}

func (r *RosterRepository) CountJobsByStatus(ctx context.Context) (map[roster.JobStatus]int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		N      int64
	}
	if err := db.Model(&model.Job{}).
		Select("status, count(*) as n").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count jobs by status")
	}

	counts := make(map[roster.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[roster.JobStatus(row.Status)] = row.N
	}
	return counts, nil
}

// CreateVersion writes the version row plus its full record and issue set.
// Callers wrap it in a unit of work together with the pointer flip.
func (r *RosterRepository) CreateVersion(ctx context.Context, v *ports.Version, records []roster.Record, issues []roster.Issue) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Version{
		JobID:     v.JobID,
		Sequence:  v.Sequence,
		Source:    v.Source,
		Author:    v.Author,
		ParentID:  v.ParentID,
		Note:      v.Note,
		CreatedAt: v.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert version")
	}
	v.ID = row.VersionID

	if len(records) > 0 {
		recordRows := make([]model.Record, 0, len(records))
		for _, rec := range records {
			payload, err := json.Marshal(rec.Fields)
			if err != nil {
				return errs.Wrap(err, "encode record fields")
			}
			recordRows = append(recordRows, model.Record{
				VersionID:  row.VersionID,
				RowIdx:     rec.RowIndex,
				FieldsJSON: string(payload),
				Confidence: rec.Confidence,
				Method:     string(rec.Method),
			})
		}
		if err := db.CreateInBatches(&recordRows, 200).Error; err != nil {
			return errs.Wrap(err, "insert records")
		}
	}

	if len(issues) > 0 {
		issueRows := make([]model.Issue, 0, len(issues))
		for _, is := range issues {
			issueRows = append(issueRows, model.Issue{
				VersionID:    row.VersionID,
				RowIdx:       is.RowIndex,
				Field:        is.Field,
				Severity:     string(is.Severity),
				Message:      is.Message,
				SuggestedFix: is.SuggestedFix,
			})
		}
		if err := db.CreateInBatches(&issueRows, 200).Error; err != nil {
			return errs.Wrap(err, "insert issues")
		}
	}
	return nil
}

func (r *RosterRepository) GetVersion(ctx context.Context, id uint64) (*ports.Version, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row model.Version
	if err := db.Where("version_id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, roster.ErrVersionNotFound
		}
		return nil, errs.Wrap(err, "query version")
	}
	return mapVersion(row), nil
}

func (r *RosterRepository) ListVersions(ctx context.Context, jobID uint64) ([]*ports.Version, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Version
	if err := db.
		Where("job_id = ?", jobID).
		Order("sequence asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query versions")
	}

	items := make([]*ports.Version, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapVersion(row))
	}
	return items, nil
}

func (r *RosterRepository) ListRecords(ctx context.Context, versionID uint64) ([]roster.Record, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Record
	if err := db.
		Where("version_id = ?", versionID).
		Order("row_idx asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query records")
	}

	records := make([]roster.Record, 0, len(rows))
	for _, row := range rows {
		fields := roster.FieldMap{}
		if err := json.Unmarshal([]byte(row.FieldsJSON), &fields); err != nil {
			return nil, errs.Wrapf(err, "decode record %d fields", row.RecordID)
		}
		records = append(records, roster.Record{
			RowIndex:   row.RowIdx,
			Fields:     fields,
			Confidence: row.Confidence,
			Method:     roster.ExtractionMethod(row.Method),
		})
	}
	return records, nil
}

func (r *RosterRepository) ListIssues(ctx context.Context, versionID uint64) ([]roster.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Issue
	if err := db.
		Where("version_id = ?", versionID).
		Order("issue_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query issues")
	}

	issues := make([]roster.Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, roster.Issue{
			RowIndex:     row.RowIdx,
			Field:        row.Field,
			Severity:     roster.Severity(row.Severity),
			Message:      row.Message,
			SuggestedFix: row.SuggestedFix,
		})
	}
	return issues, nil
}

func (r *RosterRepository) CreateExport(ctx context.Context, e *ports.Export) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Export{
		JobID:     e.JobID,
		VersionID: e.VersionID,
		Path:      e.Path,
		Checksum:  e.Checksum,
		RowCount:  e.RowCount,
		CreatedAt: e.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert export")
	}
	e.ID = row.ExportID
	return nil
}

func (r *RosterRepository) GetExport(ctx context.Context, id uint64) (*ports.Export, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row model.Export
	if err := db.Where("export_id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, roster.ErrExportNotFound
		}
		return nil, errs.Wrap(err, "query export")
	}
	return mapExport(row), nil
}

func (r *RosterRepository) ListExports(ctx context.Context, jobID uint64) ([]*ports.Export, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Export
	if err := db.
		Where("job_id = ?", jobID).
		Order("export_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query exports")
	}

	items := make([]*ports.Export, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapExport(row))
	}
	return items, nil
}

func (r *RosterRepository) AppendAudit(ctx context.Context, entry *ports.AuditEntry) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.AuditLog{
		JobID:     entry.JobID,
		Actor:     entry.Actor,
		Action:    entry.Action,
		Detail:    entry.Detail,
		CreatedAt: entry.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert audit entry")
	}
	entry.ID = row.AuditID
	return nil
}

func (r *RosterRepository) ListAudit(ctx context.Context, jobID uint64) ([]*ports.AuditEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.AuditLog
	if err := db.
		Where("job_id = ?", jobID).
		Order("audit_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query audit log")
	}

	items := make([]*ports.AuditEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, &ports.AuditEntry{
			ID:        row.AuditID,
			JobID:     row.JobID,
			Actor:     row.Actor,
			Action:    row.Action,
			Detail:    row.Detail,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func mapJob(row model.Job) *ports.Job {
	timings := map[string]int64{}
	_ = json.Unmarshal([]byte(row.StageTimingsJSON), &timings)

	job := &ports.Job{
		ID:               row.JobID,
		DocumentRef:      row.DocumentRef,
		Sender:           row.Sender,
		ContentType:      roster.ContentType(row.ContentType),
		Status:           roster.JobStatus(row.Status),
		CurrentVersionID: row.CurrentVersionID,
		FailureReason:    row.FailureReason,
		StageTimings:     timings,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.StartedAt != nil {
		job.StartedAt = *row.StartedAt
	}
	if row.FinishedAt != nil {
		job.FinishedAt = *row.FinishedAt
	}
	return job
}

func mapVersion(row model.Version) *ports.Version {
	return &ports.Version{
		ID:        row.VersionID,
		JobID:     row.JobID,
		Sequence:  row.Sequence,
		Source:    row.Source,
		Author:    row.Author,
		ParentID:  row.ParentID,
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
	}
}

func mapExport(row model.Export) *ports.Export {
	return &ports.Export{
		ID:        row.ExportID,
		JobID:     row.JobID,
		VersionID: row.VersionID,
		Path:      row.Path,
		Checksum:  row.Checksum,
		RowCount:  row.RowCount,
		CreatedAt: row.CreatedAt,
	}
}

func encodeTimings(timings map[string]int64) string {
	if len(timings) == 0 {
		return "{}"
	}
	payload, err := json.Marshal(timings)
	if err != nil {
		return "{}"
	}
	return string(payload)
}
