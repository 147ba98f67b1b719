package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/exporter"
	"rosterflow/internal/extract"
	"rosterflow/internal/infrastructure/persistence/sqlite/model"
	"rosterflow/internal/infrastructure/persistence/sqlite/repository"
	"rosterflow/internal/infrastructure/persistence/sqlite/uow"
	"rosterflow/internal/ports"
)

const cleanCSV = "Provider Name,NPI,Specialty,Effective Date,Term Date,Reason\n" +
	"Jane Doe,1234567893,Cardiology,01/15/2024,06/30/2026,Voluntary\n" +
	"John Roe,1992708929,Family Medicine,02/01/2024,,\n"

const sparseCSV = "Provider Name,Specialty\nJane Doe,Cardiology\n"

type fakeAssist struct {
	mu      sync.Mutex
	records []roster.Record
	err     error
	enabled bool
	calls   int
}

func (f *fakeAssist) Enabled() bool { return f.enabled }

func (f *fakeAssist) Infer(ctx context.Context, req ports.AssistRequest) ([]roster.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = f.calls + 1
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func assistRecord(idx int, npi string) roster.Record {
	fields := roster.NewFieldMap()
	fields["Provider NPI"] = npi
	fields["Provider Name"] = "Jane Doe"
	fields["Provider Specialty"] = "Cardiology"
	fields["Effective Date"] = "01/15/2024"
	return roster.Record{RowIndex: idx, Fields: fields, Confidence: 1, Method: roster.MethodAssist}
}

type testEnv struct {
	svc    *Service
	repo   *repository.RosterRepository
	assist *fakeAssist
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "pipeline.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(
		&model.Job{},
		&model.Version{},
		&model.Record{},
		&model.Issue{},
		&model.Export{},
		&model.AuditLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	repo := repository.NewRosterRepository(db)
	assist := &fakeAssist{enabled: true}
	extractor := extract.New(extract.NewRegistry(), assist, extract.Options{
		AssistTimeout: time.Second,
	})
	svc := NewService(repo, uow.NewUnitOfWork(db), extractor, nil, nil, Options{
		ExportDir: filepath.Join(t.TempDir(), "exports"),
	})
	return &testEnv{svc: svc, repo: repo, assist: assist}
}

func (e *testEnv) ingest(t *testing.T, ct roster.ContentType) *ports.Job {
	t.Helper()
	job, err := e.svc.Ingest(context.Background(), IngestInput{
		DocumentRef: "inbox/roster.csv",
		Sender:      "acme-health",
		ContentType: ct,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return job
}

func (e *testEnv) process(t *testing.T, jobID uint64, data string) *ProcessResult {
	t.Helper()
	result, err := e.svc.Process(context.Background(), ProcessInput{JobID: jobID, Data: []byte(data)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return result
}

func TestProcessCleanDocumentGoesReady(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)

	result := env.process(t, job.ID, cleanCSV)
	if result.Status != roster.StatusReady {
		t.Fatalf("status = %s, want ready", result.Status)
	}
	if result.Rows != 2 || result.Escalated {
		t.Fatalf("unexpected result %+v", result)
	}
	if env.assist.calls != 0 {
		t.Fatalf("assist consulted for a confident document")
	}

	got, err := env.repo.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.CurrentVersionID == nil || *got.CurrentVersionID != result.VersionID {
		t.Fatalf("current version pointer = %v, want %d", got.CurrentVersionID, result.VersionID)
	}
	if len(got.StageTimings) == 0 {
		t.Fatalf("stage timings not recorded")
	}

	records, err := env.repo.ListRecords(context.Background(), result.VersionID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if records[0].Fields["Phone Number"] != "" {
		t.Fatalf("phantom phone value %q", records[0].Fields["Phone Number"])
	}
	if records[0].Fields["Effective Date"] != "01/15/2024" {
		t.Fatalf("effective date = %q", records[0].Fields["Effective Date"])
	}
}

func TestProcessMissingRequiredNeedsReview(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)

	// No NPI or effective date columns at all.
	data := "Provider Name,Specialty,Phone\nJane Doe,Cardiology,555-234-5678\n"
	env.assist.enabled = false

	result := env.process(t, job.ID, data)
	if result.Status != roster.StatusNeedsReview {
		t.Fatalf("status = %s, want needs_review", result.Status)
	}

	issues, err := env.repo.ListIssues(context.Background(), result.VersionID)
	if err != nil {
		t.Fatalf("list issues: %v", err)
	}
	if !roster.HasErrors(issues) {
		t.Fatalf("expected error-severity issues, got %+v", issues)
	}
}

func TestProcessEscalatesToAssist(t *testing.T) {
	env := newTestEnv(t)
	env.assist.records = []roster.Record{assistRecord(0, "1234567893")}
	job := env.ingest(t, roster.ContentSpreadsheet)

	result := env.process(t, job.ID, sparseCSV)
	if !result.Escalated {
		t.Fatalf("sparse document did not escalate: %+v", result)
	}
	if result.Status != roster.StatusReady {
		t.Fatalf("status = %s, want ready", result.Status)
	}

	records, err := env.repo.ListRecords(context.Background(), result.VersionID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if records[0].Method != roster.MethodAssist {
		t.Fatalf("method = %s, want assist", records[0].Method)
	}
}

func TestProcessFailureMarksJobFailed(t *testing.T) {
	env := newTestEnv(t)
	env.assist.enabled = false
	job := env.ingest(t, roster.ContentPDFScanned)

	_, err := env.svc.Process(context.Background(), ProcessInput{JobID: job.ID, Data: []byte("%PDF-1.4")})
	if !errors.Is(err, roster.ErrExtractionExhausted) {
		t.Fatalf("process error = %v, want ErrExtractionExhausted", err)
	}

	got, err := env.repo.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != roster.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.FailureReason == "" {
		t.Fatalf("failure reason not recorded")
	}

	// Retry returns the job to pending for another run.
	if err := env.svc.Retry(context.Background(), job.ID, "operator"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	got, err = env.repo.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != roster.StatusPending {
		t.Fatalf("status after retry = %s", got.Status)
	}
}

func TestProcessAcceptsFailedJobDirectly(t *testing.T) {
	env := newTestEnv(t)
	env.assist.enabled = false
	job := env.ingest(t, roster.ContentPDFScanned)

	if _, err := env.svc.Process(context.Background(), ProcessInput{JobID: job.ID, Data: []byte("%PDF-1.4")}); !errors.Is(err, roster.ErrExtractionExhausted) {
		t.Fatalf("process error = %v, want ErrExtractionExhausted", err)
	}

	// A second Process call picks the failed job up again, no Retry needed.
	env.assist.enabled = true
	env.assist.records = []roster.Record{assistRecord(0, "1234567893")}
	result, err := env.svc.Process(context.Background(), ProcessInput{JobID: job.ID, Data: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("process failed job: %v", err)
	}
	if result.Status != roster.StatusReady || result.Rows != 1 {
		t.Fatalf("result = %+v, want ready with 1 row", result)
	}

	got, err := env.repo.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != roster.StatusReady {
		t.Fatalf("status = %s, want ready", got.Status)
	}
	if got.FailureReason != "" {
		t.Fatalf("failure reason not cleared: %q", got.FailureReason)
	}
}

func TestProcessRerunLinksPriorVersion(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)
	first := env.process(t, job.ID, cleanCSV)

	// An operator fails the job after a bad downstream load.
	if err := env.repo.UpdateJobStatus(context.Background(), job.ID, roster.StatusReady, roster.StatusFailed, "downstream load rejected"); err != nil {
		t.Fatalf("fail job: %v", err)
	}

	second := env.process(t, job.ID, cleanCSV)
	v, err := env.repo.GetVersion(context.Background(), second.VersionID)
	if err != nil {
		t.Fatalf("get rerun version: %v", err)
	}
	if v.Sequence != 2 {
		t.Fatalf("rerun sequence = %d, want 2", v.Sequence)
	}
	if v.ParentID == nil || *v.ParentID != first.VersionID {
		t.Fatalf("rerun parent = %v, want %d", v.ParentID, first.VersionID)
	}
}

func TestSweepReclaimsCrashWindowJob(t *testing.T) {
	env := newTestEnv(t)

	// A worker that died between the processing transition and MarkStarted
	// leaves exactly this row: processing, stale updated_at, no started_at.
	stale := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC).Format(ports.TimeLayout)
	job := &ports.Job{
		DocumentRef: "inbox/crashed.csv",
		Sender:      "acme-health",
		ContentType: roster.ContentSpreadsheet,
		Status:      roster.StatusProcessing,
		CreatedAt:   stale,
		UpdatedAt:   stale,
	}
	if err := env.repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	result, err := env.svc.SweepStuck(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0] != job.ID {
		t.Fatalf("failed = %v, want [%d]", result.Failed, job.ID)
	}

	got, err := env.repo.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != roster.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.StartedAt != "" {
		t.Fatalf("started_at = %q, want empty for a crash-window job", got.StartedAt)
	}
}

func TestProcessRejectsWrongState(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)
	env.process(t, job.ID, cleanCSV)

	_, err := env.svc.Process(context.Background(), ProcessInput{JobID: job.ID, Data: []byte(cleanCSV)})
	if !errors.Is(err, roster.ErrInvalidTransition) {
		t.Fatalf("process error = %v, want ErrInvalidTransition", err)
	}
}

func TestProcessConcurrentCallsShareOneRun(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*ProcessResult, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.svc.Process(context.Background(), ProcessInput{
				JobID: job.ID,
				Data:  []byte(cleanCSV),
			})
		}(i)
	}
	wg.Wait()

	// A caller scheduled after the shared run finished sees the job already
	// past pending; that rejection is the correct outcome for it.
	succeeded := 0
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] == nil:
			succeeded++
		case errors.Is(errs[i], roster.ErrInvalidTransition):
		default:
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
	}
	if succeeded == 0 {
		t.Fatalf("no caller completed the run")
	}

	versions, err := env.repo.ListVersions(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("concurrent processing created %d versions", len(versions))
	}
}

func TestEditCreatesNewVersion(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)
	processed := env.process(t, job.ID, cleanCSV)

	edit, err := env.svc.Edit(context.Background(), EditInput{
		JobID: job.ID,
		Actor: "reviewer-1",
		Edits: []FieldEdit{{RowIndex: 0, Field: "Provider Specialty", Value: "Oncology"}},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edit.Sequence != 2 {
		t.Fatalf("edit sequence = %d, want 2", edit.Sequence)
	}
	if len(edit.Changes) != 1 || edit.Changes[0].After != "Oncology" {
		t.Fatalf("changes = %+v", edit.Changes)
	}

	// The original version is untouched.
	originals, err := env.repo.ListRecords(context.Background(), processed.VersionID)
	if err != nil {
		t.Fatalf("list original records: %v", err)
	}
	if originals[0].Fields["Provider Specialty"] != "Cardiology" {
		t.Fatalf("original version mutated: %q", originals[0].Fields["Provider Specialty"])
	}

	edited, err := env.repo.ListRecords(context.Background(), edit.VersionID)
	if err != nil {
		t.Fatalf("list edited records: %v", err)
	}
	if edited[0].Method != roster.MethodManual {
		t.Fatalf("edited row method = %s", edited[0].Method)
	}
	// Untouched rows keep their provenance.
	if edited[1].Method != roster.MethodRule {
		t.Fatalf("untouched row method = %s", edited[1].Method)
	}

	base, err := env.repo.GetVersion(context.Background(), processed.VersionID)
	if err != nil {
		t.Fatalf("get base version: %v", err)
	}
	if base.Author != "system" || base.ParentID != nil {
		t.Fatalf("base version author=%q parent=%v, want system with no parent", base.Author, base.ParentID)
	}
	v2, err := env.repo.GetVersion(context.Background(), edit.VersionID)
	if err != nil {
		t.Fatalf("get edited version: %v", err)
	}
	if v2.Author != "reviewer-1" {
		t.Fatalf("edited version author = %q", v2.Author)
	}
	if v2.ParentID == nil || *v2.ParentID != processed.VersionID {
		t.Fatalf("edited version parent = %v, want %d", v2.ParentID, processed.VersionID)
	}
}

func TestEditRejectsUnknownColumn(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)
	env.process(t, job.ID, cleanCSV)

	_, err := env.svc.Edit(context.Background(), EditInput{
		JobID: job.ID,
		Edits: []FieldEdit{{RowIndex: 0, Field: "Shoe Size", Value: "9"}},
	})
	if !errors.Is(err, roster.ErrUnknownColumn) {
		t.Fatalf("edit error = %v, want ErrUnknownColumn", err)
	}
}

func TestRollbackRepointsCurrentVersion(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)
	processed := env.process(t, job.ID, cleanCSV)

	edited, err := env.svc.Edit(context.Background(), EditInput{
		JobID: job.ID,
		Edits: []FieldEdit{{RowIndex: 0, Field: "Provider Name", Value: "Janet Doe"}},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	restored, err := env.svc.Rollback(context.Background(), RollbackInput{
		JobID:     job.ID,
		VersionID: processed.VersionID,
	})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if restored.VersionID != processed.VersionID || restored.Sequence != 1 {
		t.Fatalf("restored = %+v, want version %d at sequence 1", restored, processed.VersionID)
	}

	got, err := env.repo.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.CurrentVersionID == nil || *got.CurrentVersionID != processed.VersionID {
		t.Fatalf("current version = %v, want %d", got.CurrentVersionID, processed.VersionID)
	}

	// The edited snapshot survives untouched and can be rolled forward to.
	records, err := env.repo.ListRecords(context.Background(), edited.VersionID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if records[0].Fields["Provider Name"] != "Janet Doe" {
		t.Fatalf("edited name = %q", records[0].Fields["Provider Name"])
	}

	versions, err := env.repo.ListVersions(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("history length = %d, want 2 (rollback adds none)", len(versions))
	}
}

func TestRollbackRejectsForeignVersion(t *testing.T) {
	env := newTestEnv(t)
	first := env.ingest(t, roster.ContentSpreadsheet)
	second := env.ingest(t, roster.ContentSpreadsheet)
	processed := env.process(t, first.ID, cleanCSV)

	_, err := env.svc.Rollback(context.Background(), RollbackInput{
		JobID:     second.ID,
		VersionID: processed.VersionID,
	})
	if !errors.Is(err, roster.ErrVersionJobMismatch) {
		t.Fatalf("rollback error = %v, want ErrVersionJobMismatch", err)
	}
}

func TestExportBindsChecksum(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)
	env.process(t, job.ID, cleanCSV)

	result, err := env.svc.Export(context.Background(), ExportInput{JobID: job.ID})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
	if !strings.Contains(result.Path, result.Checksum[:12]) {
		t.Fatalf("path %q not bound to checksum", result.Path)
	}

	records, err := env.repo.ListRecords(context.Background(), result.VersionID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if result.Checksum != exporter.Checksum(records) {
		t.Fatalf("stored checksum does not match the version content")
	}

	got, err := env.repo.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != roster.StatusExported {
		t.Fatalf("status = %s, want exported", got.Status)
	}

	// Re-export cuts a second file with the same checksum.
	again, err := env.svc.Export(context.Background(), ExportInput{JobID: job.ID})
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if again.Checksum != result.Checksum {
		t.Fatalf("re-export checksum changed: %s vs %s", again.Checksum, result.Checksum)
	}
	exports, err := env.repo.ListExports(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(exports) != 2 {
		t.Fatalf("exports len = %d", len(exports))
	}
}

func TestExportRequiresReviewableState(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)

	_, err := env.svc.Export(context.Background(), ExportInput{JobID: job.ID})
	if err == nil {
		t.Fatalf("export of a pending job should fail")
	}
}

func TestSweepFailsStuckJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.ingest(t, roster.ContentSpreadsheet)

	if err := env.repo.UpdateJobStatus(ctx, job.ID, roster.StatusPending, roster.StatusProcessing, ""); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	staleStart := time.Now().UTC().Add(-10 * time.Minute).Format(ports.TimeLayout)
	if err := env.repo.MarkStarted(ctx, job.ID, staleStart); err != nil {
		t.Fatalf("mark started: %v", err)
	}

	result, err := env.svc.SweepStuck(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0] != job.ID {
		t.Fatalf("sweep result = %+v", result)
	}

	got, err := env.repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != roster.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestSweepLeavesFreshRunsAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.ingest(t, roster.ContentSpreadsheet)

	if err := env.repo.UpdateJobStatus(ctx, job.ID, roster.StatusPending, roster.StatusProcessing, ""); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if err := env.repo.MarkStarted(ctx, job.ID, env.svc.nowString()); err != nil {
		t.Fatalf("mark started: %v", err)
	}

	result, err := env.svc.SweepStuck(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("fresh run swept: %+v", result)
	}
}

func TestCancelProcessingJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.ingest(t, roster.ContentSpreadsheet)

	if err := env.repo.UpdateJobStatus(ctx, job.ID, roster.StatusPending, roster.StatusProcessing, ""); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if err := env.svc.Cancel(ctx, job.ID, "operator", "duplicate submission"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := env.repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != roster.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
}

func TestDiffVersions(t *testing.T) {
	env := newTestEnv(t)
	job := env.ingest(t, roster.ContentSpreadsheet)
	processed := env.process(t, job.ID, cleanCSV)

	edit, err := env.svc.Edit(context.Background(), EditInput{
		JobID: job.ID,
		Edits: []FieldEdit{{RowIndex: 1, Field: "Term Reason", Value: "Relocated"}},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	changes, err := env.svc.DiffVersions(context.Background(), job.ID, processed.VersionID, edit.VersionID)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[0].Field != "Term Reason" || changes[0].After != "Relocated" {
		t.Fatalf("change = %+v", changes[0])
	}
}
