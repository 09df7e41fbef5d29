package bigquery

import (
	"errors"
	"math/big"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestToLedgerRows(t *testing.T) {
	takenAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		{
			ID: "t1", Date: "2024-02-01", Year: 2024, Project: "Acme Launch", CustomerName: "Acme",
			Amount: 1050, Currency: domain.CurrencyAED, VAT: 50, Fee: 150, Payable: 850,
			Type: domain.TypeIncome, Category: domain.CategoryCampaign,
			ClientStatus: domain.StatusPaid, ReferenceNumber: "b1",
		},
		{
			ID: "t2", Date: "not a date", Year: 2023, Project: "Adobe",
			Amount: 100, Currency: domain.CurrencyUSD,
			Type: domain.TypeExpense, ClientStatus: domain.StatusPending,
		},
	}

	rows := ToLedgerRows("snap", takenAt, txs, finance.DefaultRates())
	require.Len(t, rows, 2)

	r := rows[0]
	assert.Equal(t, "snap", r.SnapshotID)
	assert.Equal(t, takenAt, r.SnapshotTS)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 1}, r.TransactionDate)
	assert.Equal(t, int64(2024), r.Year)
	assert.Equal(t, bigquery.NullString{StringVal: "Acme", Valid: true}, r.CustomerName)
	assert.False(t, r.InvoiceNumber.Valid)
	assert.Equal(t, 0, r.Amount.Cmp(big.NewRat(1050, 1)))
	assert.Equal(t, 0, r.AmountAED.Cmp(big.NewRat(1050, 1)))
	assert.Equal(t, 0, r.Payable.Cmp(big.NewRat(850, 1)))
	assert.True(t, r.Reconciled)

	usd := rows[1]
	assert.Equal(t, civil.Date{Year: 2023, Month: time.January, Day: 1}, usd.TransactionDate)
	assert.Equal(t, 0, usd.AmountAED.Cmp(big.NewRat(36725, 100)))
	assert.False(t, usd.Reconciled)
}

func TestLedgerSnapshotSchema(t *testing.T) {
	schema, err := LedgerSnapshotSchema()
	require.NoError(t, err)

	types := map[string]bigquery.FieldType{}
	for _, f := range schema {
		types[f.Name] = f.Type
	}
	assert.Equal(t, bigquery.DateFieldType, types["transaction_date"])
	assert.Equal(t, bigquery.NumericFieldType, types["amount"])
	assert.Equal(t, bigquery.TimestampFieldType, types["snapshot_ts"])
	assert.Equal(t, bigquery.StringFieldType, types["customer_name"])
	assert.Equal(t, bigquery.BooleanFieldType, types["reconciled"])
}

func TestAPIErrorClassification(t *testing.T) {
	notFound := &googleapi.Error{Code: http.StatusNotFound}
	conflict := &googleapi.Error{Code: http.StatusConflict}

	assert.True(t, isNotFound(notFound))
	assert.False(t, isNotFound(conflict))
	assert.True(t, isAlreadyExists(conflict))
	assert.False(t, isNotFound(errors.New("network down")))
}
