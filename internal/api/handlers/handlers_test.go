package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/agency-ledger/internal/books"
	"github.com/dvloznov/agency-ledger/internal/documents"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/jobs"
	"github.com/dvloznov/agency-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/agency-ledger/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	PublishFunc func(ctx context.Context, job *jobs.Job) error
	published   []*jobs.Job
}

func (m *MockPublisher) Publish(ctx context.Context, job *jobs.Job) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, job); err != nil {
			return err
		}
	}
	job.ID = "job-1"
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

type testServer struct {
	handler   http.Handler
	books     *books.Service
	publisher *MockPublisher
	jobs      *inmemory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	docs, err := documents.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	svc := books.New(store.New(store.NewMemoryBackend()), books.Options{Documents: docs})
	t.Cleanup(svc.Close)

	pub := &MockPublisher{}
	js := inmemory.NewStore()
	h := NewHandler(svc, docs, pub, js, 1)
	return &testServer{
		handler:   NewRouter(h, zerolog.New(io.Discard), "*"),
		books:     svc,
		publisher: pub,
		jobs:      js,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestTransactionsCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"date": "2024-06-01", "project": "Acme Launch", "amount": 1050,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Transaction](t, rec)
	assert.Equal(t, 1000.0, created.Net)
	assert.Equal(t, 892.5, created.ClientPayment)

	rec = s.do(t, http.MethodGet, "/api/transactions?year=2024&q=acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Transaction](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/transactions?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/transactions/"+created.ID+"/status", map[string]string{"clientStatus": "Paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusPaid, decode[domain.Transaction](t, rec).ClientStatus)

	rec = s.do(t, http.MethodPost, "/api/transactions/bulk-update", map[string]interface{}{
		"ids": []string{created.ID}, "category": "Marketing",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[map[string]int](t, rec)["updated"])

	rec = s.do(t, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/transactions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "not found")
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"invalid transaction", http.MethodPost, "/api/transactions", map[string]interface{}{"amount": -1, "project": "x"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/campaigns/merge", "not an object", http.StatusBadRequest},
		{"reset without phrase", http.MethodPost, "/api/reset", map[string]string{"phrase": "yes"}, http.StatusConflict},
		{"clear bank without confirm", http.MethodDelete, "/api/bank-transactions", nil, http.StatusConflict},
		{"unknown bank line", http.MethodPost, "/api/bank-transactions/nope/unlink", nil, http.StatusNotFound},
		{"chat without model", http.MethodPost, "/api/chat", map[string]string{"message": "hi"}, http.StatusServiceUnavailable},
		{"snapshots without warehouse", http.MethodGet, "/api/warehouse/snapshots", nil, http.StatusServiceUnavailable},
		{"unknown job", http.MethodGet, "/api/jobs/nope", nil, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/chat", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestReconciliationFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tx, err := s.books.CreateTransaction(ctx, domain.Transaction{Date: "2024-03-01", Project: "Acme Launch", Amount: 1000})
	require.NoError(t, err)
	_, err = s.books.AppendBankTransactions(ctx, []domain.BankTransaction{{
		ID: "b1", Date: "2024-03-02", Amount: 1000, Currency: domain.CurrencyAED,
		Type: domain.DirectionCredit, Description: "ACME LAUNCH FZ",
	}})
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/bank-transactions/b1/candidates?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cands := decode[[]map[string]interface{}](t, rec)
	require.NotEmpty(t, cands)
	assert.GreaterOrEqual(t, cands[0]["score"], float64(500))

	rec = s.do(t, http.MethodPost, "/api/bank-transactions/b1/link", map[string][]string{"transactionIds": {tx.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[books.LinkResult](t, rec)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{tx.ID}, res.Bank.MatchedTransactionIDs)

	got, err := s.books.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.ClientStatus)

	rec = s.do(t, http.MethodPost, "/api/bank-transactions/b1/unlink", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = s.books.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.ClientStatus)

	rec = s.do(t, http.MethodPost, "/api/bank-transactions/b1/expense", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "credit lines cannot become expenses")
}

func TestImportStatement_EnqueuesJob(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, "/api/bank-transactions/import", "feb.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "job-1", decode[map[string]string](t, rec)["jobId"])

	require.Len(t, s.publisher.published, 1)
	job := s.publisher.published[0]
	assert.Equal(t, jobs.JobTypeParseStatement, job.Type)
	assert.Equal(t, "application/pdf", job.Param(jobs.ParamMIMEType))
	assert.Equal(t, "feb.pdf", job.Param(jobs.ParamFileName))
	assert.True(t, strings.HasPrefix(job.Param(jobs.ParamDocumentURI), "file://"))

	rec = s.do(t, http.MethodPost, "/api/bank-transactions/import", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncEndpointsEnqueue(t *testing.T) {
	s := newTestServer(t)

	for path, typ := range map[string]jobs.JobType{
		"/api/zoho/sync":                jobs.JobTypeSyncZoho,
		"/api/notion/sync?dry_run=true": jobs.JobTypeSyncNotion,
		"/api/warehouse/export":         jobs.JobTypeExportWarehouse,
	} {
		rec := s.do(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusAccepted, rec.Code, path)
		last := s.publisher.published[len(s.publisher.published)-1]
		assert.Equal(t, typ, last.Type)
	}

	for _, j := range s.publisher.published {
		if j.Type == jobs.JobTypeSyncNotion {
			assert.Equal(t, "true", j.Param(jobs.ParamDryRun))
		}
	}
}

func TestCampaignRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/campaigns", map[string]string{"name": "Nike"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/campaigns", map[string]string{"name": "Nike X"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/campaigns/merge", map[string][]string{"names": {"Nike", "Nike X"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Nike X", decode[map[string]string](t, rec)["target"])

	rec = s.do(t, http.MethodPost, "/api/campaigns/Nike%20X/deliverables", map[string]interface{}{"name": "Reel", "rate": 500})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	d := decode[domain.Deliverable](t, rec)

	rec = s.do(t, http.MethodPost, "/api/campaigns/Nike%20X/deliverables/"+d.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[domain.Deliverable](t, rec).IsCompleted)

	rec = s.upload(t, "/api/campaigns/Nike%20X/files", "brief.pdf", []byte("brief"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(5), decode[domain.CampaignFile](t, rec).Size)

	rec = s.do(t, http.MethodGet, "/api/reports/campaigns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]domain.Campaign](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"Nike"}, list[0].MergedSources)
	assert.Len(t, list[0].Files, 1)
}

func TestBackupRoundTrip(t *testing.T) {
	s := newTestServer(t)
	_, err := s.books.CreateContact(context.Background(), domain.Contact{Name: "Sara"})
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "agency-ledger-backup-")
	backup := rec.Body.Bytes()

	rec = s.do(t, http.MethodPost, "/api/reset", map[string]string{"phrase": books.ResetPhrase})
	require.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader(backup))
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode[books.RestoreResult](t, rec).Restored, "contacts")

	rec = s.do(t, http.MethodGet, "/api/contacts", nil)
	assert.Len(t, decode[[]domain.Contact](t, rec), 1)
}

func TestZohoConfigIsRedacted(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/zoho/config", map[string]string{
		"organizationId": "org-1", "accessToken": "secret-token",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/zoho/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-token")
	assert.Equal(t, domain.SecretMask, decode[domain.ZohoConfig](t, rec).AccessToken)
}

func TestListJobs(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.jobs.SaveJob(context.Background(), &jobs.Job{ID: "j1", Type: jobs.JobTypeSyncZoho, Status: jobs.JobStatusCompleted}))

	rec := s.do(t, http.MethodGet, "/api/jobs?type=sync_zoho", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]interface{}](t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/jobs/j1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jobs.JobStatusCompleted, decode[jobs.Job](t, rec).Status)
}
