package app

import (
	"context"
	"io"
	"testing"

	"github.com/dvloznov/agency-ledger/internal/books"
	"github.com/dvloznov/agency-ledger/internal/config"
	"github.com/dvloznov/agency-ledger/internal/jobs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataBackend:       config.BackendMemory,
		DocumentsDir:      t.TempDir(),
		VATRate:           0.05,
		FeeRate:           0.15,
		USDToAED:          3.6725,
		ZohoRatePerMinute: 100,
		JobWorkers:        1,
		JobQueueSize:      10,
	}
}

func TestNew_WithoutIntegrations(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), zerolog.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	_, err = a.ImportStatement(ctx, "file:///x.pdf", "application/pdf")
	assert.ErrorIs(t, err, books.ErrUnavailable)

	_, err = a.Books.SyncNotion(ctx, true)
	assert.ErrorIs(t, err, books.ErrUnavailable)

	_, err = a.Books.ExportWarehouse(ctx)
	assert.ErrorIs(t, err, books.ErrUnavailable)

	// Zoho is always wired; without stored credentials it is rejected as input.
	_, err = a.Books.SyncZoho(ctx)
	assert.ErrorIs(t, err, books.ErrInvalidInput)
}

func TestRouter_CoversEveryJobType(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zerolog.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	router := a.Router()
	for _, typ := range []jobs.JobType{
		jobs.JobTypeParseStatement,
		jobs.JobTypeSyncZoho,
		jobs.JobTypeSyncNotion,
		jobs.JobTypeExportWarehouse,
	} {
		assert.Contains(t, router, typ)
	}

	job := &jobs.Job{Type: jobs.JobTypeExportWarehouse}
	err = router.Handle(context.Background(), job)
	assert.ErrorIs(t, err, books.ErrUnavailable)
	assert.Empty(t, job.Result)

	err = router.Handle(context.Background(), &jobs.Job{Type: "unknown"})
	assert.Error(t, err)
}

func TestOpenBackend_File(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataBackend = config.BackendFile
	cfg.DataDir = t.TempDir()

	b, err := openBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Put(context.Background(), "transactions", []byte("[]")))
	data, err := b.Get(context.Background(), "transactions")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
