package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/visualverse/internal/domain/model"
)

// IdempotencyHeader carries the client's idempotency key for job submission.
const IdempotencyHeader = "Idempotency-Key"

// JobService runs renders asynchronously.
type JobService interface {
	SubmitJob(ctx context.Context, domain, kind string, params json.RawMessage, key string) (model.JobRecord, bool, error)
	GetJob(ctx context.Context, id string) (model.JobRecord, error)
	ListJobs(ctx context.Context, status model.JobStatus) ([]model.JobRecord, error)
}

// JobsHandler handles render job requests.
type JobsHandler struct {
	deps    JobService
	maxBody int64
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobService, maxBody int64) *JobsHandler {
	return &JobsHandler{deps: deps, maxBody: maxBody}
}

type jobRequest struct {
	Domain string          `json:"domain" validate:"required"`
	Kind   string          `json:"kind" validate:"required"`
	Params json.RawMessage `json:"params"`
}

// HandleSubmit handles POST /api/v1/jobs. A new job answers 202, a repeated
// Idempotency-Key answers 200 with the original job.
func (h *JobsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_job"
	var req jobRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	key := r.Header.Get(IdempotencyHeader)
	if len(key) > 200 {
		writeError(w, r, WrapKind(op, ErrBadRequest, errKeyTooLong))
		return
	}
	rec, created, err := h.deps.SubmitJob(r.Context(), req.Domain, req.Kind, req.Params, key)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusAccepted
		w.Header().Set("Location", "/api/v1/jobs/"+rec.ID)
	}
	writeJSON(w, status, rec)
}

// HandleGet handles GET /api/v1/jobs/{id}.
func (h *JobsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	rec, err := h.deps.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type jobSummary struct {
	ID         string          `json:"id"`
	Domain     string          `json:"domain"`
	Kind       string          `json:"kind"`
	Status     model.JobStatus `json:"status"`
	ErrorCode  string          `json:"error_code,omitempty"`
	FrameCount int             `json:"frame_count,omitempty"`
}

// HandleList handles GET /api/v1/jobs[?status=]; results are omitted.
func (h *JobsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_jobs"
	status := model.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, WrapKind(op, ErrBadRequest, errUnknownStatus))
		return
	}
	recs, err := h.deps.ListJobs(r.Context(), status)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	out := make([]jobSummary, len(recs))
	for i, rec := range recs {
		out[i] = jobSummary{ID: rec.ID, Domain: rec.Domain, Kind: rec.Kind, Status: rec.Status, ErrorCode: rec.ErrorCode, FrameCount: rec.FrameCount}
	}
	writeJSON(w, http.StatusOK, out)
}
