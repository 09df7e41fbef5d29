package handlers

import (
	"bytes"
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListCampaigns handles GET /api/campaigns and GET /api/reports/campaigns
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	list, err := h.books.ListCampaigns(r.Context())
	if err != nil {
		writeServiceError(w, r, "list campaigns", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}

// CreateCampaign handles POST /api/campaigns
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.books.CreateCampaign(r.Context(), req.Name); err != nil {
		writeServiceError(w, r, "create campaign", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// MergeCampaigns handles POST /api/campaigns/merge
func (h *Handler) MergeCampaigns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Names []string `json:"names"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	target, err := h.books.MergeCampaigns(r.Context(), req.Names)
	if err != nil {
		writeServiceError(w, r, "merge campaigns", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"target": target})
}

// RenameCampaign handles POST /api/campaigns/{name}/rename
func (h *Handler) RenameCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewName string `json:"newName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.books.RenameCampaign(r.Context(), chi.URLParam(r, "name"), req.NewName)
	if err != nil {
		writeServiceError(w, r, "rename campaign", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":                req.NewName,
		"updatedTransactions": n,
	})
}

// DeleteCampaign handles DELETE /api/campaigns/{name}
func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.books.DeleteCampaign(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeServiceError(w, r, "delete campaign", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddDeliverable handles POST /api/campaigns/{name}/deliverables
func (h *Handler) AddDeliverable(w http.ResponseWriter, r *http.Request) {
	var d domain.Deliverable
	if !decodeBody(w, r, &d) {
		return
	}
	out, err := h.books.AddDeliverable(r.Context(), chi.URLParam(r, "name"), d)
	if err != nil {
		writeServiceError(w, r, "add deliverable", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, out)
}

// UpdateDeliverable handles PUT /api/campaigns/{name}/deliverables/{id}
func (h *Handler) UpdateDeliverable(w http.ResponseWriter, r *http.Request) {
	var d domain.Deliverable
	if !decodeBody(w, r, &d) {
		return
	}
	out, err := h.books.UpdateDeliverable(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "id"), d)
	if err != nil {
		writeServiceError(w, r, "update deliverable", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// ToggleDeliverable handles POST /api/campaigns/{name}/deliverables/{id}/toggle
func (h *Handler) ToggleDeliverable(w http.ResponseWriter, r *http.Request) {
	out, err := h.books.ToggleDeliverable(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "toggle deliverable", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// DeleteDeliverable handles DELETE /api/campaigns/{name}/deliverables/{id}
func (h *Handler) DeleteDeliverable(w http.ResponseWriter, r *http.Request) {
	if err := h.books.DeleteDeliverable(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete deliverable", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ParseContract handles POST /api/campaigns/{name}/deliverables/parse
func (h *Handler) ParseContract(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	res, err := h.books.ParseContract(r.Context(), chi.URLParam(r, "name"), up.attachment())
	if err != nil {
		writeServiceError(w, r, "parse contract", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// AttachFile handles POST /api/campaigns/{name}/files
func (h *Handler) AttachFile(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	f, err := h.books.AttachFile(r.Context(), chi.URLParam(r, "name"), up.Name, up.ContentType, bytes.NewReader(up.Data))
	if err != nil {
		writeServiceError(w, r, "attach file", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, f)
}
