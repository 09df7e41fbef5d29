package finance

import (
	"sort"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// YearTotals is the annual rollup for one year, in AED.
type YearTotals struct {
	Year         int     `json:"year"`
	Income       float64 `json:"income"`
	Fee          float64 `json:"fee"`
	Payable      float64 `json:"payable"`
	Expenses     float64 `json:"expenses"`
	IncomeCount  int     `json:"incomeCount"`
	ExpenseCount int     `json:"expenseCount"`
}

// AnnualRollup groups the ledger by year, newest first.
func AnnualRollup(txs []domain.Transaction, r Rates) []YearTotals {
	type acc struct {
		income, fee, payable, expenses decimal.Decimal
		incomeCount, expenseCount      int
	}
	byYear := make(map[int]*acc)

	for i := range txs {
		tx := &txs[i]
		a, ok := byYear[tx.Year]
		if !ok {
			a = &acc{}
			byYear[tx.Year] = a
		}
		if tx.Type == domain.TypeExpense {
			a.expenses = a.expenses.Add(r.ToAED(tx.Amount, tx.Currency))
			a.expenseCount++
			continue
		}
		a.income = a.income.Add(r.ToAED(tx.Amount, tx.Currency))
		a.fee = a.fee.Add(r.ToAED(tx.Fee, tx.Currency))
		a.payable = a.payable.Add(r.ToAED(tx.Payable, tx.Currency))
		a.incomeCount++
	}

	out := make([]YearTotals, 0, len(byYear))
	for year, a := range byYear {
		out = append(out, YearTotals{
			Year:         year,
			Income:       round(a.income),
			Fee:          round(a.fee),
			Payable:      round(a.payable),
			Expenses:     round(a.expenses),
			IncomeCount:  a.incomeCount,
			ExpenseCount: a.expenseCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// VATSummary is the VAT position in AED.
type VATSummary struct {
	Year            int     `json:"year,omitempty"`
	OutputCollected float64 `json:"outputCollected"`
	OutputAccrued   float64 `json:"outputAccrued"`
	Output          float64 `json:"output"`
	Input           float64 `json:"input"`
	NetLiability    float64 `json:"netLiability"`
}

// VATCenter computes output tax (collected and accrued) against input tax.
// A zero year covers the whole ledger.
func VATCenter(txs []domain.Transaction, r Rates, year int) VATSummary {
	var collected, accrued, input decimal.Decimal

	for i := range txs {
		tx := &txs[i]
		if year != 0 && tx.Year != year {
			continue
		}
		vat := r.ToAED(tx.VAT, tx.Currency)
		if tx.Type == domain.TypeExpense {
			input = input.Add(vat)
			continue
		}
		switch {
		case tx.ClientStatus.IsSettled():
			collected = collected.Add(vat)
		case tx.ClientStatus.IsOutstanding():
			accrued = accrued.Add(vat)
		}
	}

	output := collected.Add(accrued)
	return VATSummary{
		Year:            year,
		OutputCollected: round(collected),
		OutputAccrued:   round(accrued),
		Output:          round(output),
		Input:           round(input),
		NetLiability:    round(output.Sub(input)),
	}
}

// Dashboard is the headline summary of the books, in AED.
type Dashboard struct {
	Income           float64 `json:"income"`
	Expenses         float64 `json:"expenses"`
	Fees             float64 `json:"fees"`
	Payable          float64 `json:"payable"`
	Outstanding      float64 `json:"outstanding"`
	AgencyProfit     float64 `json:"agencyProfit"`
	TransactionCount int     `json:"transactionCount"`
	BankCount        int     `json:"bankCount"`
	UnreconciledBank int     `json:"unreconciledBank"`
}

// Summarize builds the dashboard from the ledger and the bank feed.
func Summarize(txs []domain.Transaction, bank []domain.BankTransaction, r Rates) Dashboard {
	var income, expenses, fees, payable, outstanding decimal.Decimal

	for i := range txs {
		tx := &txs[i]
		amount := r.ToAED(tx.Amount, tx.Currency)
		if tx.Type == domain.TypeExpense {
			expenses = expenses.Add(amount)
			continue
		}
		income = income.Add(amount)
		fees = fees.Add(r.ToAED(tx.Fee, tx.Currency))
		payable = payable.Add(r.ToAED(tx.Payable, tx.Currency))
		if tx.ClientStatus.IsOutstanding() {
			outstanding = outstanding.Add(amount)
		}
	}

	unreconciled := 0
	for i := range bank {
		if !bank[i].IsMatched() {
			unreconciled++
		}
	}

	return Dashboard{
		Income:           round(income),
		Expenses:         round(expenses),
		Fees:             round(fees),
		Payable:          round(payable),
		Outstanding:      round(outstanding),
		AgencyProfit:     round(fees.Sub(expenses)),
		TransactionCount: len(txs),
		BankCount:        len(bank),
		UnreconciledBank: unreconciled,
	}
}
