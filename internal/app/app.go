// Package app builds the books service and its collaborators from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/agency-ledger/internal/books"
	"github.com/dvloznov/agency-ledger/internal/config"
	"github.com/dvloznov/agency-ledger/internal/documents"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	bq "github.com/dvloznov/agency-ledger/internal/infra/bigquery"
	"github.com/dvloznov/agency-ledger/internal/jobs"
	"github.com/dvloznov/agency-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/dvloznov/agency-ledger/internal/notionsync"
	"github.com/dvloznov/agency-ledger/internal/pipeline"
	"github.com/dvloznov/agency-ledger/internal/store"
	"github.com/dvloznov/agency-ledger/internal/store/sqlite"
	"github.com/dvloznov/agency-ledger/internal/zoho"
	"github.com/rs/zerolog"
)

// App holds everything a binary needs.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Books     *books.Service
	Documents documents.Store
	Jobs      *inmemory.Store
	Queue     *inmemory.Queue

	statements pipeline.StatementParser
	store      *store.Store
	warehouse  bq.Warehouse
}

// New wires the application. Integrations without configuration are left
// out and their operations report books.ErrUnavailable.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	ctx = logger.WithContext(ctx, log)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	st := store.New(backend)

	docs, err := openDocuments(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("New: %w", err)
	}

	a := &App{Config: cfg, Log: log, Documents: docs, store: st}
	opts := books.Options{
		Rates:     finance.NewRates(cfg.VATRate, cfg.FeeRate, cfg.USDToAED),
		Documents: docs,
		Zoho:      zohoFactory(cfg),
		ReportTTL: cfg.ReportTTL,
	}

	if cfg.GeminiEnabled() {
		model, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		parser := llm.NewParser(model)
		opts.Parser = parser
		opts.Assistant = llm.NewAssistant(model)
		a.statements = parser
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, document parsing and chat are disabled")
	}

	if cfg.NotionEnabled() {
		opts.Notion = notionsync.NewNotionClient(cfg.NotionToken)
		opts.NotionDatabaseID = cfg.NotionDatabaseID
	}

	if cfg.WarehouseEnabled() {
		wh, err := bq.NewBigQueryWarehouse(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.GoogleCredentialsFile)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		opts.Warehouse = wh
		a.warehouse = wh
	}

	a.Books = books.New(st, opts)
	a.Jobs = inmemory.NewStore()
	a.Queue = inmemory.NewQueue(cfg.JobQueueSize, cfg.JobWorkers, a.Jobs)

	log.Info().
		Str("backend", cfg.DataBackend).
		Bool("gemini", cfg.GeminiEnabled()).
		Bool("notion", cfg.NotionEnabled()).
		Bool("warehouse", cfg.WarehouseEnabled()).
		Msg("Application initialised")
	return a, nil
}

// Start runs the job workers until ctx is cancelled or Close is called.
func (a *App) Start(ctx context.Context) error {
	return a.Queue.Start(logger.WithContext(ctx, a.Log), a.Router().Handle)
}

// Close stops the workers and releases the backends.
func (a *App) Close(ctx context.Context) error {
	if err := a.Queue.Stop(ctx); err != nil {
		a.Log.Error().Err(err).Msg("Error stopping job queue")
	}
	a.Books.Close()
	if a.warehouse != nil {
		if err := a.warehouse.Close(); err != nil {
			a.Log.Error().Err(err).Msg("Error closing warehouse client")
		}
	}
	return a.store.Close()
}

// ImportStatement runs the statement pipeline for a stored document.
func (a *App) ImportStatement(ctx context.Context, uri, mimeType string) (*pipeline.PipelineState, error) {
	if a.statements == nil {
		return nil, fmt.Errorf("ImportStatement: parser: %w", books.ErrUnavailable)
	}
	return pipeline.ImportStatement(ctx, a.Documents, a.statements, a.Books, uri, mimeType)
}

// Router maps every background job type to its handler.
func (a *App) Router() jobs.Router {
	return jobs.Router{
		jobs.JobTypeParseStatement: func(ctx context.Context, job *jobs.Job) error {
			state, err := a.ImportStatement(ctx, job.Param(jobs.ParamDocumentURI), job.Param(jobs.ParamMIMEType))
			if err != nil {
				return err
			}
			job.Result = fmt.Sprintf("imported %d bank lines, %d warnings", state.Imported, len(state.Warnings()))
			return nil
		},
		jobs.JobTypeSyncZoho: func(ctx context.Context, job *jobs.Job) error {
			res, err := a.Books.SyncZoho(ctx)
			if err != nil {
				return err
			}
			job.Result = fmt.Sprintf("%d invoices added, %d updated, %d contacts added",
				res.InvoicesAdded, res.InvoicesUpdated, res.ContactsAdded)
			return nil
		},
		jobs.JobTypeSyncNotion: func(ctx context.Context, job *jobs.Job) error {
			res, err := a.Books.SyncNotion(ctx, job.Param(jobs.ParamDryRun) == "true")
			if err != nil {
				return err
			}
			job.Result = fmt.Sprintf("%d created, %d updated, %d archived, %d failed",
				res.Created, res.Updated, res.Archived, res.Failed)
			return nil
		},
		jobs.JobTypeExportWarehouse: func(ctx context.Context, job *jobs.Job) error {
			summary, err := a.Books.ExportWarehouse(ctx)
			if err != nil {
				return err
			}
			job.Result = fmt.Sprintf("snapshot %s with %d rows", summary.SnapshotID, summary.Rows)
			return nil
		},
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("openBackend: %w", err)
		}
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.BackendGCS:
		return store.NewGCSBackend(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		return store.NewFileBackend(cfg.DataDir)
	}
}

func openDocuments(ctx context.Context, cfg *config.Config) (documents.Store, error) {
	if cfg.DocumentsBucket != "" {
		return documents.NewGCSStore(ctx, cfg.DocumentsBucket)
	}
	return documents.NewLocalStore(cfg.DocumentsDir)
}

// zohoFactory builds rate-limited clients. The configured accounts domain
// applies when the stored settings leave it empty.
func zohoFactory(cfg *config.Config) books.ZohoFactory {
	return func(ctx context.Context, zc domain.ZohoConfig) (books.ZohoSource, error) {
		if zc.AccountsDomain == "" {
			zc.AccountsDomain = cfg.ZohoAccountsDomain
		}
		return zoho.NewClient(ctx, zc, zoho.WithRateLimit(cfg.ZohoRatePerMinute, 10))
	}
}
