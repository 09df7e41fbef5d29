package handlers

import (
	"fmt"
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
)

// ExportBackup handles GET /api/backup
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	b, err := h.books.ExportBackup(r.Context())
	if err != nil {
		writeServiceError(w, r, "export backup", err)
		return
	}
	name := fmt.Sprintf("agency-ledger-backup-%s.json", b.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	middleware.WriteJSON(w, http.StatusOK, b)
}

// ImportBackup handles POST /api/backup
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	res, err := h.books.ImportBackup(r.Context(), r.Body)
	if err != nil {
		writeServiceError(w, r, "import backup", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Reset handles POST /api/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phrase string `json:"phrase"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.books.Reset(r.Context(), req.Phrase); err != nil {
		writeServiceError(w, r, "reset data", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
