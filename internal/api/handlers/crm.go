package handlers

import (
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/ratecard"
	"github.com/go-chi/chi/v5"
)

// ListContacts handles GET /api/contacts
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	list, err := h.books.ListContacts(r.Context())
	if err != nil {
		writeServiceError(w, r, "list contacts", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}

// CreateContact handles POST /api/contacts
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var c domain.Contact
	if !decodeBody(w, r, &c) {
		return
	}
	out, err := h.books.CreateContact(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, "create contact", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, out)
}

// UpdateContact handles PUT /api/contacts/{id}
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var c domain.Contact
	if !decodeBody(w, r, &c) {
		return
	}
	out, err := h.books.UpdateContact(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		writeServiceError(w, r, "update contact", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// DeleteContact handles DELETE /api/contacts/{id}
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.books.DeleteContact(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ContactPipeline handles GET /api/contacts/pipeline
func (h *Handler) ContactPipeline(w http.ResponseWriter, r *http.Request) {
	stages, err := h.books.ContactPipeline(r.Context())
	if err != nil {
		writeServiceError(w, r, "build pipeline", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, stages)
}

// ParseContact handles POST /api/contacts/parse
func (h *Handler) ParseContact(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	res, err := h.books.ParseContact(r.Context(), up.attachment())
	if err != nil {
		writeServiceError(w, r, "parse contact", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// GetRateCard handles GET /api/ratecard
func (h *Handler) GetRateCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.books.GetRateCard(r.Context())
	if err != nil {
		writeServiceError(w, r, "load rate card", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, card)
}

// SetRateCard handles PUT /api/ratecard
func (h *Handler) SetRateCard(w http.ResponseWriter, r *http.Request) {
	var card domain.RateCard
	if !decodeBody(w, r, &card) {
		return
	}
	out, err := h.books.SetRateCard(r.Context(), card)
	if err != nil {
		writeServiceError(w, r, "save rate card", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// ParseRateCard handles POST /api/ratecard/parse
func (h *Handler) ParseRateCard(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	res, err := h.books.ParseRateCard(r.Context(), up.Name, up.attachment())
	if err != nil {
		writeServiceError(w, r, "parse rate card", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Quote handles POST /api/ratecard/quote
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req ratecard.Request
	if !decodeBody(w, r, &req) {
		return
	}
	q, err := h.books.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "build quote", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, q)
}
