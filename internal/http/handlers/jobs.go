package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediatracker/internal/domain"
	"mediatracker/internal/middleware"
)

// SubmitJobRequest is the client payload for a new generation job. Input is
// forwarded to the vendor untouched and kept on the job for audit.
type SubmitJobRequest struct {
	Vendor domain.Vendor   `json:"vendor"`
	Input  json.RawMessage `json:"input"`
}

// JobResponse is the caller-facing view of a job.
type JobResponse struct {
	ID          string     `json:"id"`
	Vendor      string     `json:"vendor"`
	Status      string     `json:"status"`
	ResultURL   string     `json:"result_url,omitempty"`
	ErrorDetail string     `json:"error_detail,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	TerminalAt  *time.Time `json:"terminal_at,omitempty"`
}

func jobResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:          job.ID,
		Vendor:      string(job.Vendor),
		Status:      string(job.Status),
		ResultURL:   job.ResultURL,
		ErrorDetail: job.ErrorDetail,
		CreatedAt:   job.CreatedAt,
		TerminalAt:  job.TerminalAt,
	}
}

// SubmitJob creates a job and starts the vendor work.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	if ownerID == "" {
		a.jsonError(w, domain.ErrUnauthorized)
		return
	}

	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, domain.ErrInvalidInput)
		return
	}
	if len(req.Input) == 0 {
		a.jsonError(w, domain.ErrInvalidInput)
		return
	}

	job, err := a.Service.Submit(r.Context(), ownerID, req.Vendor, req.Input)
	if err != nil {
		a.Logger.Warn().Err(err).Str("vendor", string(req.Vendor)).Msg("submit failed")
		a.jsonError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, jobResponse(job))
}

// GetJob returns the current status of an owner's job; UI polling hits this.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	if ownerID == "" {
		a.jsonError(w, domain.ErrUnauthorized)
		return
	}

	job, err := a.Service.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		a.jsonError(w, err)
		return
	}
	a.json(w, http.StatusOK, jobResponse(job))
}
