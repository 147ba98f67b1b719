package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/ports"
	"rosterflow/internal/usecase/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := ports.JobFilter{
		Status: roster.JobStatus(r.URL.Query().Get("status")),
		Sender: r.URL.Query().Get("sender"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			badRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	jobs, err := s.svc.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": toJobViews(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := s.svc.JobDetail(r.Context(), jobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDetailView(detail))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts := make(map[string]int64, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	// async=true hands the job to the worker pool and returns immediately.
	if r.URL.Query().Get("async") == "true" {
		if s.runner == nil || !s.runner.Enqueue(r.Context(), jobID) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "worker queue is full or not running"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "queued": true})
		return
	}

	result, err := s.svc.Process(r.Context(), pipeline.ProcessInput{JobID: jobID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":     result.JobID,
		"status":     string(result.Status),
		"version_id": result.VersionID,
		"rows":       result.Rows,
		"issues":     result.Issues,
		"escalated":  result.Escalated,
		"shared":     result.Shared,
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Retry(r.Context(), jobID, actorFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "status": string(roster.StatusPending)})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}
	if err := s.svc.Cancel(r.Context(), jobID, actorFrom(r), req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "status": string(roster.StatusCancelled)})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Note  string `json:"note"`
		Edits []struct {
			Row   int    `json:"row"`
			Field string `json:"field"`
			Value string `json:"value"`
		} `json:"edits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if len(req.Edits) == 0 {
		badRequest(w, "at least one edit is required")
		return
	}

	input := pipeline.EditInput{JobID: jobID, Actor: actorFrom(r), Note: req.Note}
	for _, e := range req.Edits {
		input.Edits = append(input.Edits, pipeline.FieldEdit{
			RowIndex: e.Row,
			Field:    e.Field,
			Value:    e.Value,
		})
	}

	result, err := s.svc.Edit(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version_id": result.VersionID,
		"sequence":   result.Sequence,
		"changes":    toChangeViews(result.Changes),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := s.svc.Export(r.Context(), pipeline.ExportInput{JobID: jobID, Actor: actorFrom(r)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"export_id":  result.ExportID,
		"version_id": result.VersionID,
		"path":       result.Path,
		"checksum":   result.Checksum,
		"row_count":  result.RowCount,
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	versions, err := s.svc.ListVersions(r.Context(), jobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": toVersionViews(versions)})
}

func (s *Server) handleVersionDetail(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "vid")
	if !ok {
		return
	}
	records, issues, err := s.svc.VersionRecords(r.Context(), jobID, versionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": toRecordViews(records),
		"issues":  toIssueViews(issues),
	})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "vid")
	if !ok {
		return
	}
	result, err := s.svc.Rollback(r.Context(), pipeline.RollbackInput{
		JobID:     jobID,
		VersionID: versionID,
		Actor:     actorFrom(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version_id": result.VersionID,
		"sequence":   result.Sequence,
	})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	from, err := strconv.ParseUint(r.URL.Query().Get("from"), 10, 64)
	if err != nil {
		badRequest(w, "from must be a version id")
		return
	}
	to, err := strconv.ParseUint(r.URL.Query().Get("to"), 10, 64)
	if err != nil {
		badRequest(w, "to must be a version id")
		return
	}
	changes, err := s.svc.DiffVersions(r.Context(), jobID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": toChangeViews(changes)})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.SweepStuck(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	failed := result.Failed
	if failed == nil {
		failed = []uint64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"failed": failed})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	exportID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	export, err := s.svc.GetExport(r.Context(), exportID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filepath.Base(export.Path)))
	http.ServeFile(w, r, export.Path)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		badRequest(w, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// actorFrom attributes mutating calls in the audit trail. Callers identify
// themselves with a header; absent that, the service picks its default.
func actorFrom(r *http.Request) string {
	return r.Header.Get("X-Actor")
}
