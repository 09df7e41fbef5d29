package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/shopspring/decimal"
)

const ledgerSnapshotsTable = "ledger_snapshots"

// LedgerRow is one ledger row inside a snapshot.
type LedgerRow struct {
	SnapshotID    string    `bigquery:"snapshot_id"`    // REQUIRED
	SnapshotTS    time.Time `bigquery:"snapshot_ts"`    // REQUIRED
	TransactionID string    `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Year            int64      `bigquery:"year"`

	Project       string              `bigquery:"project"`
	CustomerName  bigquery.NullString `bigquery:"customer_name"`
	InvoiceNumber bigquery.NullString `bigquery:"invoice_number"`
	Type          string              `bigquery:"type"`
	Category      string              `bigquery:"category"`

	Amount    *big.Rat `bigquery:"amount"`     // NUMERIC
	Currency  string   `bigquery:"currency"`   // REQUIRED
	AmountAED *big.Rat `bigquery:"amount_aed"` // NUMERIC
	VAT       *big.Rat `bigquery:"vat"`        // NUMERIC
	Fee       *big.Rat `bigquery:"fee"`        // NUMERIC
	Payable   *big.Rat `bigquery:"payable"`    // NUMERIC

	ClientStatus string              `bigquery:"client_status"`
	PayoutStatus bigquery.NullString `bigquery:"payout_status"`
	Reconciled   bool                `bigquery:"reconciled"`
}

// SnapshotSummary describes one stored snapshot.
type SnapshotSummary struct {
	SnapshotID string    `bigquery:"snapshot_id" json:"snapshotId"`
	SnapshotTS time.Time `bigquery:"snapshot_ts" json:"snapshotTs"`
	Rows       int64     `bigquery:"row_count" json:"rows"`
	IncomeAED  float64   `bigquery:"income_aed" json:"incomeAed"`
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func numeric(v float64) *big.Rat {
	return decimal.NewFromFloat(v).Rat()
}

// ToLedgerRows maps the ledger onto snapshot rows. Dates that do not parse
// fall back to the first of January of the row's year.
func ToLedgerRows(snapshotID string, takenAt time.Time, txs []domain.Transaction, rates finance.Rates) []*LedgerRow {
	rows := make([]*LedgerRow, 0, len(txs))
	for i := range txs {
		tx := &txs[i]

		date, err := civil.ParseDate(tx.Date)
		if err != nil {
			date = civil.Date{Year: tx.Year, Month: time.January, Day: 1}
		}

		reconciled := tx.ReferenceNumber != "" || tx.PayoutRef != ""
		rows = append(rows, &LedgerRow{
			SnapshotID:      snapshotID,
			SnapshotTS:      takenAt,
			TransactionID:   tx.ID,
			TransactionDate: date,
			Year:            int64(tx.Year),
			Project:         tx.Project,
			CustomerName:    nullString(tx.CustomerName),
			InvoiceNumber:   nullString(tx.InvoiceNumber),
			Type:            string(tx.Type),
			Category:        string(tx.Category),
			Amount:          numeric(tx.Amount),
			Currency:        string(tx.Currency),
			AmountAED:       rates.ToAED(tx.Amount, tx.Currency).Round(2).Rat(),
			VAT:             numeric(tx.VAT),
			Fee:             numeric(tx.Fee),
			Payable:         numeric(tx.Payable),
			ClientStatus:    string(tx.ClientStatus),
			PayoutStatus:    nullString(string(tx.PayoutStatus)),
			Reconciled:      reconciled,
		})
	}
	return rows
}

// LedgerSnapshotSchema is the table schema, inferred from LedgerRow.
func LedgerSnapshotSchema() (bigquery.Schema, error) {
	return bigquery.InferSchema(LedgerRow{})
}
