package handlers

import (
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListResources handles GET /api/resources
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	list, err := h.books.ListResources(r.Context())
	if err != nil {
		writeServiceError(w, r, "list resources", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}

// AddResource handles POST /api/resources
func (h *Handler) AddResource(w http.ResponseWriter, r *http.Request) {
	var in domain.Resource
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.books.AddResource(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "add resource", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, out)
}

// DeleteResource handles DELETE /api/resources/{id}
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.books.DeleteResource(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEntities handles GET /api/entities
func (h *Handler) GetEntities(w http.ResponseWriter, r *http.Request) {
	st, err := h.books.GetEntities(r.Context())
	if err != nil {
		writeServiceError(w, r, "list entities", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, st)
}

// AddEntity handles POST /api/entities
func (h *Handler) AddEntity(w http.ResponseWriter, r *http.Request) {
	var in domain.Entity
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.books.AddEntity(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "add entity", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, out)
}

// DeleteEntity handles DELETE /api/entities/{id}
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.books.DeleteEntity(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete entity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetActiveEntity handles PUT /api/entities/active
func (h *Handler) SetActiveEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := h.books.SetActiveEntity(r.Context(), req.ID)
	if err != nil {
		writeServiceError(w, r, "select entity", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, st)
}

// GetPreferences handles GET /api/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.books.GetPreferences(r.Context())
	if err != nil {
		writeServiceError(w, r, "load preferences", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}

// SetPreferences handles PUT /api/preferences
func (h *Handler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	var p domain.Preferences
	if !decodeBody(w, r, &p) {
		return
	}
	out, err := h.books.SetPreferences(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, "save preferences", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}
