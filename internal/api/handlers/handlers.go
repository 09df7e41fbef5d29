// Package handlers exposes the books service over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/dvloznov/agency-ledger/internal/books"
	"github.com/dvloznov/agency-ledger/internal/documents"
	"github.com/dvloznov/agency-ledger/internal/jobs"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/dvloznov/agency-ledger/internal/logger"
)

// Handler serves every API route.
type Handler struct {
	books     *books.Service
	docs      documents.Store
	publisher jobs.Publisher
	jobs      jobs.JobStore
	maxUpload int64
}

// NewHandler creates the API handler. maxUploadMB caps multipart bodies.
func NewHandler(svc *books.Service, docs documents.Store, publisher jobs.Publisher, store jobs.JobStore, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &Handler{
		books:     svc,
		docs:      docs,
		publisher: publisher,
		jobs:      store,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

// writeServiceError maps service errors onto status codes. Unexpected
// errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, books.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, books.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, books.ErrConfirmationRequired):
		status = http.StatusConflict
	case errors.Is(err, books.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("op", op).Msg("Request failed")
		middleware.WriteError(w, status, fmt.Sprintf("Failed to %s", op))
		return
	}
	middleware.WriteError(w, status, err.Error())
}

// decodeBody decodes a JSON request body into v and writes a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// upload is a file read from the "file" field of a multipart form.
type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

func (u upload) attachment() llm.Attachment {
	return llm.Attachment{MIMEType: u.ContentType, Data: u.Data}
}

// readUpload reads the "file" part of a multipart request. It writes the
// error response itself and returns false on failure.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart upload")
		return upload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return upload{}, false
	}
	name := filepath.Base(header.Filename)
	return upload{
		Name:        name,
		ContentType: documents.DetectMIME(name, header.Header.Get("Content-Type")),
		Data:        data,
	}, true
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// enqueue publishes a job and answers 202 with its id.
func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, job *jobs.Job) {
	log := logger.FromContext(r.Context())
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		log.Error().Err(err).Str("job_type", string(job.Type)).Msg("Failed to enqueue job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}
	log.Info().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Msg("Job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"jobId":  job.ID,
		"type":   string(job.Type),
		"status": string(job.Status),
	})
}
