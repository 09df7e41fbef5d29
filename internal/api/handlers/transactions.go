package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/books"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListTransactions handles GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := books.TransactionFilter{
		Year:    year,
		Project: q.Get("project"),
		Query:   q.Get("q"),
	}
	if t := q.Get("type"); t != "" {
		filter.Type = domain.ParseTransactionType(t)
	}

	txs, err := h.books.ListTransactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "list transactions", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// GetTransaction handles GET /api/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.books.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "get transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// CreateTransaction handles POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.Transaction
	if !decodeBody(w, r, &in) {
		return
	}
	tx, err := h.books.CreateTransaction(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "create transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.Transaction
	if !decodeBody(w, r, &in) {
		return
	}
	tx, err := h.books.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, "update transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// SetTransactionStatus handles PATCH /api/transactions/{id}/status
func (h *Handler) SetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var patch books.StatusPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	tx, err := h.books.SetTransactionStatus(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, "update status", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.books.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	IDs []string `json:"ids"`
	books.BulkPatch
}

// BulkDeleteTransactions handles POST /api/transactions/bulk-delete
func (h *Handler) BulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.books.BulkDeleteTransactions(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, r, "delete transactions", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// BulkUpdateTransactions handles POST /api/transactions/bulk-update
func (h *Handler) BulkUpdateTransactions(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.books.BulkUpdateTransactions(r.Context(), req.IDs, req.BulkPatch)
	if err != nil {
		writeServiceError(w, r, "update transactions", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// ImportExcel handles POST /api/transactions/import/excel
func (h *Handler) ImportExcel(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	if !strings.HasSuffix(strings.ToLower(up.Name), ".xlsx") {
		middleware.WriteError(w, http.StatusBadRequest, "an .xlsx workbook is required")
		return
	}
	res, err := h.books.ImportExcel(r.Context(), bytes.NewReader(up.Data))
	if err != nil {
		writeServiceError(w, r, "import workbook", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
