package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/jobs"
)

// GetZohoConfig handles GET /api/zoho/config
func (h *Handler) GetZohoConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.books.GetZohoConfig(r.Context())
	if err != nil {
		writeServiceError(w, r, "load zoho settings", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cfg)
}

// SetZohoConfig handles PUT /api/zoho/config
func (h *Handler) SetZohoConfig(w http.ResponseWriter, r *http.Request) {
	var in domain.ZohoConfig
	if !decodeBody(w, r, &in) {
		return
	}
	cfg, err := h.books.SetZohoConfig(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "save zoho settings", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cfg)
}

// SyncZoho handles POST /api/zoho/sync
func (h *Handler) SyncZoho(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, &jobs.Job{Type: jobs.JobTypeSyncZoho})
}

// SyncNotion handles POST /api/notion/sync?dry_run=true
func (h *Handler) SyncNotion(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, &jobs.Job{
		Type:   jobs.JobTypeSyncNotion,
		Params: map[string]string{jobs.ParamDryRun: strconv.FormatBool(r.URL.Query().Get("dry_run") == "true")},
	})
}

// ExportWarehouse handles POST /api/warehouse/export
func (h *Handler) ExportWarehouse(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, &jobs.Job{Type: jobs.JobTypeExportWarehouse})
}

// ListSnapshots handles GET /api/warehouse/snapshots
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.books.ListSnapshots(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, "list snapshots", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}
