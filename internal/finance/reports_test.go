package finance

import (
	"testing"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func income(year int, amount float64, cur domain.Currency, status domain.Status) domain.Transaction {
	tx := domain.Transaction{Year: year, Amount: amount, Currency: cur, Type: domain.TypeIncome, ClientStatus: status}
	DefaultRates().Apply(&tx)
	return tx
}

func expense(year int, amount, vat float64) domain.Transaction {
	tx := domain.Transaction{Year: year, Amount: amount, VAT: vat, Currency: domain.CurrencyAED, Type: domain.TypeExpense}
	DefaultRates().Apply(&tx)
	return tx
}

func TestAnnualRollup(t *testing.T) {
	txs := []domain.Transaction{
		income(2023, 1050, domain.CurrencyAED, domain.StatusPaid),
		income(2024, 1050, domain.CurrencyAED, domain.StatusPaid),
		income(2024, 100, domain.CurrencyUSD, domain.StatusPending),
		expense(2024, 50, 0),
	}

	got := AnnualRollup(txs, DefaultRates())
	require.Len(t, got, 2)

	assert.Equal(t, 2024, got[0].Year)
	assert.Equal(t, 1417.25, got[0].Income)
	assert.Equal(t, 50.0, got[0].Expenses)
	assert.Equal(t, 2, got[0].IncomeCount)
	assert.Equal(t, 1, got[0].ExpenseCount)
	// 150 AED + 14.29 USD fee
	assert.InDelta(t, 150+14.29*3.6725, got[0].Fee, 0.01)

	assert.Equal(t, 2023, got[1].Year)
	assert.Equal(t, 1050.0, got[1].Income)
}

func TestVATCenter(t *testing.T) {
	txs := []domain.Transaction{
		income(2024, 1050, domain.CurrencyAED, domain.StatusPaid),
		income(2024, 2100, domain.CurrencyAED, domain.StatusPaidPersonal),
		income(2024, 525, domain.CurrencyAED, domain.StatusOverdue),
		income(2024, 525, domain.CurrencyAED, domain.StatusVoid),
		income(2023, 1050, domain.CurrencyAED, domain.StatusUnpaid),
		expense(2024, 105, 5),
	}

	all := VATCenter(txs, DefaultRates(), 0)
	assert.Equal(t, 150.0, all.OutputCollected)
	assert.Equal(t, 75.0, all.OutputAccrued)
	assert.Equal(t, 225.0, all.Output)
	assert.Equal(t, 5.0, all.Input)
	assert.Equal(t, 220.0, all.NetLiability)

	y2024 := VATCenter(txs, DefaultRates(), 2024)
	assert.Equal(t, 25.0, y2024.OutputAccrued)
	assert.Equal(t, 170.0, y2024.NetLiability)
}

func TestSummarize(t *testing.T) {
	txs := []domain.Transaction{
		income(2024, 1050, domain.CurrencyAED, domain.StatusPaid),
		income(2024, 1050, domain.CurrencyAED, domain.StatusUnpaid),
		expense(2024, 100, 0),
	}
	bank := []domain.BankTransaction{
		{ID: "b1", MatchedTransactionIDs: []string{"x"}},
		{ID: "b2"},
	}

	d := Summarize(txs, bank, DefaultRates())

	assert.Equal(t, 2100.0, d.Income)
	assert.Equal(t, 100.0, d.Expenses)
	assert.Equal(t, 300.0, d.Fees)
	assert.Equal(t, 1050.0, d.Outstanding)
	assert.Equal(t, 200.0, d.AgencyProfit)
	assert.Equal(t, 3, d.TransactionCount)
	assert.Equal(t, 1, d.UnreconciledBank)
}
