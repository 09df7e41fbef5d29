package handlers

import (
	"bytes"
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/jobs"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/dvloznov/agency-ledger/internal/reconcile"
	"github.com/go-chi/chi/v5"
)

// ListBankTransactions handles GET /api/bank-transactions
func (h *Handler) ListBankTransactions(w http.ResponseWriter, r *http.Request) {
	feed, err := h.books.ListBankTransactions(r.Context())
	if err != nil {
		writeServiceError(w, r, "list bank transactions", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, feed)
}

// ClearBankTransactions handles DELETE /api/bank-transactions?confirm=true
func (h *Handler) ClearBankTransactions(w http.ResponseWriter, r *http.Request) {
	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.books.ClearBankTransactions(r.Context(), confirm); err != nil {
		writeServiceError(w, r, "clear bank transactions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBankTransaction handles DELETE /api/bank-transactions/{id}
func (h *Handler) DeleteBankTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.books.DeleteBankTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete bank transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportStatement handles POST /api/bank-transactions/import. The upload is
// stored and parsed by a background job.
func (h *Handler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	doc, err := h.docs.Save(r.Context(), up.Name, up.ContentType, bytes.NewReader(up.Data))
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("file_name", up.Name).Msg("Failed to store statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store statement")
		return
	}

	h.enqueue(w, r, &jobs.Job{
		Type: jobs.JobTypeParseStatement,
		Params: map[string]string{
			jobs.ParamDocumentURI: doc.URI,
			jobs.ParamMIMEType:    doc.ContentType,
			jobs.ParamFileName:    doc.Name,
		},
	})
}

// Candidates handles GET /api/bank-transactions/{id}/candidates
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := reconcile.Options{Query: r.URL.Query().Get("q"), Limit: limit}

	cands, err := h.books.Candidates(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		writeServiceError(w, r, "rank candidates", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cands)
}

// Link handles POST /api/bank-transactions/{id}/link
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionIDs []string `json:"transactionIds"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.books.Link(r.Context(), chi.URLParam(r, "id"), req.TransactionIDs)
	if err != nil {
		writeServiceError(w, r, "link bank transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Unlink handles POST /api/bank-transactions/{id}/unlink
func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	res, err := h.books.Unlink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "unlink bank transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// CreateExpense handles POST /api/bank-transactions/{id}/expense
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	tx, err := h.books.CreateExpenseFromBank(r.Context(), chi.URLParam(r, "id"), req.Category)
	if err != nil {
		writeServiceError(w, r, "create expense", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}
