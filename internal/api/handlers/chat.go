package handlers

import (
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
)

// ChatHistory handles GET /api/chat
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.books.ChatHistory(r.Context())
	if err != nil {
		writeServiceError(w, r, "load chat", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, history)
}

// Ask handles POST /api/chat
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := h.books.Ask(r.Context(), req.Message)
	if err != nil {
		writeServiceError(w, r, "answer question", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reply)
}

// ClearChat handles DELETE /api/chat
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	if err := h.books.ClearChat(r.Context()); err != nil {
		writeServiceError(w, r, "clear chat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
