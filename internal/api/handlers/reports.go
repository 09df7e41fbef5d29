package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
)

// Dashboard handles GET /api/reports/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.books.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, "build dashboard", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}

// AnnualReport handles GET /api/reports/annual
func (h *Handler) AnnualReport(w http.ResponseWriter, r *http.Request) {
	years, err := h.books.AnnualReport(r.Context())
	if err != nil {
		writeServiceError(w, r, "build annual report", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, years)
}

// VATReport handles GET /api/reports/vat?year=2024
func (h *Handler) VATReport(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	vat, err := h.books.VATReport(r.Context(), year)
	if err != nil {
		writeServiceError(w, r, "build vat report", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, vat)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
