package handlers

import (
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/jobs"
	"github.com/go-chi/chi/v5"
)

// GetJob handles GET /api/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "get job", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(q.Get("type")),
		Status: jobs.JobStatus(q.Get("status")),
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "list jobs", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
