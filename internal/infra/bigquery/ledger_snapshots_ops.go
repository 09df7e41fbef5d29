package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// insertBatchSize bounds how many rows go into one streaming insert call.
const insertBatchSize = 500

// Warehouse stores and lists ledger snapshots.
type Warehouse interface {
	ExportSnapshot(ctx context.Context, txs []domain.Transaction, rates finance.Rates) (*SnapshotSummary, error)
	ListSnapshots(ctx context.Context, limit int) ([]*SnapshotSummary, error)
	Close() error
}

// BigQueryWarehouse writes ledger snapshots into <dataset>.ledger_snapshots.
type BigQueryWarehouse struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQueryWarehouse opens a BigQuery client. An empty credentialsFile uses
// application default credentials.
func NewBigQueryWarehouse(ctx context.Context, projectID, datasetID, credentialsFile string) (*BigQueryWarehouse, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWarehouse: creating client: %w", err)
	}
	return NewBigQueryWarehouseWithClient(client, projectID, datasetID), nil
}

// NewBigQueryWarehouseWithClient wraps an existing client.
func NewBigQueryWarehouseWithClient(client *bigquery.Client, projectID, datasetID string) *BigQueryWarehouse {
	return &BigQueryWarehouse{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection.
func (w *BigQueryWarehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// ExportSnapshot writes the whole ledger under a new snapshot id.
func (w *BigQueryWarehouse) ExportSnapshot(ctx context.Context, txs []domain.Transaction, rates finance.Rates) (*SnapshotSummary, error) {
	if err := EnsureLedgerSnapshotsTableWithClient(ctx, w.client, w.projectID, w.datasetID); err != nil {
		return nil, fmt.Errorf("ExportSnapshot: %w", err)
	}

	takenAt := time.Now().UTC()
	snapshotID := uuid.NewString()
	rows := ToLedgerRows(snapshotID, takenAt, txs, rates)

	if err := InsertLedgerRowsWithClient(ctx, w.client, w.projectID, w.datasetID, rows); err != nil {
		return nil, fmt.Errorf("ExportSnapshot: %w", err)
	}

	var income float64
	for _, a := range finance.AnnualRollup(txs, rates) {
		income += a.Income
	}
	return &SnapshotSummary{
		SnapshotID: snapshotID,
		SnapshotTS: takenAt,
		Rows:       int64(len(rows)),
		IncomeAED:  income,
	}, nil
}

// ListSnapshots returns the most recent snapshots, newest first.
func (w *BigQueryWarehouse) ListSnapshots(ctx context.Context, limit int) ([]*SnapshotSummary, error) {
	return ListSnapshotsWithClient(ctx, w.client, w.projectID, w.datasetID, limit)
}

// EnsureLedgerSnapshotsTableWithClient creates the snapshot table when it does not exist yet.
func EnsureLedgerSnapshotsTableWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string) error {
	table := client.DatasetInProject(projectID, datasetID).Table(ledgerSnapshotsTable)
	if _, err := table.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("EnsureLedgerSnapshotsTable: reading metadata: %w", err)
	}

	schema, err := LedgerSnapshotSchema()
	if err != nil {
		return fmt.Errorf("EnsureLedgerSnapshotsTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "snapshot_ts",
		},
	}
	if err := table.Create(ctx, meta); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureLedgerSnapshotsTable: creating table: %w", err)
	}
	return nil
}

// InsertLedgerRowsWithClient streams rows in batches.
func InsertLedgerRowsWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, rows []*LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(projectID, datasetID).Table(ledgerSnapshotsTable).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertLedgerRows: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// ListSnapshotsWithClient aggregates the snapshot table per snapshot id.
func ListSnapshotsWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, limit int) ([]*SnapshotSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			snapshot_id,
			MAX(snapshot_ts) AS snapshot_ts,
			COUNT(*) AS row_count,
			CAST(IFNULL(SUM(IF(type = 'Income', amount_aed, 0)), 0) AS FLOAT64) AS income_aed
		FROM `+"`%s.%s.%s`"+`
		GROUP BY snapshot_id
		ORDER BY snapshot_ts DESC
		LIMIT @limit
	`, projectID, datasetID, ledgerSnapshotsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: query read: %w", err)
	}

	var out []*SnapshotSummary
	for {
		var s SnapshotSummary
		err := it.Next(&s)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSnapshots: iter next: %w", err)
		}
		out = append(out, &s)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

var _ Warehouse = (*BigQueryWarehouse)(nil)
