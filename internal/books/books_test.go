package books

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/dvloznov/agency-ledger/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	svc := New(store.New(store.NewMemoryBackend()), opts)
	t.Cleanup(svc.Close)
	return svc
}

func mustCreate(t *testing.T, svc *Service, tx domain.Transaction) *domain.Transaction {
	t.Helper()
	created, err := svc.CreateTransaction(context.Background(), tx)
	require.NoError(t, err)
	return created
}

func seedBank(t *testing.T, svc *Service, lines ...domain.BankTransaction) {
	t.Helper()
	n, err := svc.AppendBankTransactions(context.Background(), lines)
	require.NoError(t, err)
	require.Equal(t, len(lines), n)
}

func TestCreateTransaction_DerivesIncomeCascade(t *testing.T) {
	svc := newTestService(t, Options{})

	tx := mustCreate(t, svc, domain.Transaction{
		Date: "2024-06-01", Project: " Acme Launch ", Amount: 1050, Category: "campaign",
	})

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, 2024, tx.Year)
	assert.Equal(t, "Acme Launch", tx.Project)
	assert.Equal(t, domain.TypeIncome, tx.Type)
	assert.Equal(t, domain.CurrencyAED, tx.Currency)
	assert.Equal(t, domain.CategoryCampaign, tx.Category)
	assert.Equal(t, domain.StatusPending, tx.ClientStatus)
	assert.Equal(t, domain.StatusPending, tx.PayoutStatus)
	assert.Equal(t, domain.SourceManual, tx.Source)

	assert.Equal(t, 1000.0, tx.Net)
	assert.Equal(t, 50.0, tx.VAT)
	assert.Equal(t, 150.0, tx.Fee)
	assert.Equal(t, 850.0, tx.Payable)
	assert.Equal(t, 892.5, tx.ClientPayment)
}

func TestCreateTransaction_Expense(t *testing.T) {
	svc := newTestService(t, Options{})

	tx := mustCreate(t, svc, domain.Transaction{Project: "Adobe", Amount: 105, VAT: 5, Type: "expense"})
	assert.Equal(t, "2025-03-14", tx.Date)
	assert.Equal(t, 2025, tx.Year)
	assert.Equal(t, 100.0, tx.Net)
	assert.Equal(t, 5.0, tx.VAT)
	assert.Zero(t, tx.Fee)
	assert.Zero(t, tx.Payable)
}

func TestCreateTransaction_Validation(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{"negative amount", domain.Transaction{Project: "A", Amount: -1}},
		{"bad date", domain.Transaction{Project: "A", Date: "14/03/2025"}},
		{"missing project", domain.Transaction{Amount: 10}},
		{"unknown status", domain.Transaction{Project: "A", ClientStatus: "Lost"}},
		{"expense vat above amount", domain.Transaction{Project: "A", Type: domain.TypeExpense, Amount: 10, VAT: 20}},
	}

	svc := newTestService(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(context.Background(), tt.tx)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	txs, err := svc.ListTransactions(context.Background(), TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestListTransactions_Filters(t *testing.T) {
	svc := newTestService(t, Options{})
	mustCreate(t, svc, domain.Transaction{Date: "2024-01-10", Project: "Acme Launch", CustomerName: "Acme", Amount: 100})
	mustCreate(t, svc, domain.Transaction{Date: "2025-01-10", Project: "Nike", Amount: 200})
	mustCreate(t, svc, domain.Transaction{Date: "2025-02-10", Project: "Adobe", Amount: 50, Type: domain.TypeExpense})

	tests := []struct {
		name   string
		filter TransactionFilter
		want   int
	}{
		{"all", TransactionFilter{}, 3},
		{"year", TransactionFilter{Year: 2025}, 2},
		{"type", TransactionFilter{Type: domain.TypeExpense}, 1},
		{"project", TransactionFilter{Project: "Nike"}, 1},
		{"query matches customer", TransactionFilter{Query: "acme"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListTransactions(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestUpdateTransaction_RecomputesAndKeepsReferences(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	tx := mustCreate(t, svc, domain.Transaction{Date: "2025-01-01", Project: "Acme", Amount: 1050})
	seedBank(t, svc, domain.BankTransaction{ID: "b1", Type: domain.DirectionCredit, Amount: 1050})
	_, err := svc.Link(ctx, "b1", []string{tx.ID})
	require.NoError(t, err)

	updated, err := svc.UpdateTransaction(ctx, tx.ID, domain.Transaction{
		Date: "2025-01-01", Project: "Acme", Amount: 2100, ClientStatus: domain.StatusPaid,
	})
	require.NoError(t, err)
	assert.Equal(t, tx.ID, updated.ID)
	assert.Equal(t, 2000.0, updated.Net)
	assert.Equal(t, "b1", updated.ReferenceNumber)

	_, err = svc.UpdateTransaction(ctx, "missing", domain.Transaction{Project: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBulkOperations(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	a := mustCreate(t, svc, domain.Transaction{Project: "A", Amount: 100})
	b := mustCreate(t, svc, domain.Transaction{Project: "B", Amount: 100})
	c := mustCreate(t, svc, domain.Transaction{Project: "C", Amount: 100})

	n, err := svc.BulkUpdateTransactions(ctx, []string{a.ID, b.ID, "ghost"}, BulkPatch{
		StatusPatch: StatusPatch{ClientStatus: "overdue"},
		Category:    "ugc",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := svc.GetTransaction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, got.ClientStatus)
	assert.Equal(t, domain.CategoryUGC, got.Category)

	_, err = svc.BulkUpdateTransactions(ctx, []string{a.ID}, BulkPatch{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	n, err = svc.BulkDeleteTransactions(ctx, []string{a.ID, c.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := svc.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].ID)
}

func TestSetTransactionStatus(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	tx := mustCreate(t, svc, domain.Transaction{Project: "A", Amount: 100})

	got, err := svc.SetTransactionStatus(ctx, tx.ID, StatusPatch{PayoutStatus: "paid to personal account"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaidPersonal, got.PayoutStatus)
	assert.Equal(t, domain.StatusPending, got.ClientStatus)

	_, err = svc.SetTransactionStatus(ctx, tx.ID, StatusPatch{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetTransactionStatus(ctx, "missing", StatusPatch{ClientStatus: "Paid"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkThenUnlink(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	a := mustCreate(t, svc, domain.Transaction{Project: "Acme Launch", Amount: 600})
	b := mustCreate(t, svc, domain.Transaction{Project: "Acme Teaser", Amount: 400})
	seedBank(t, svc, domain.BankTransaction{ID: "b1", Type: domain.DirectionCredit, Amount: 1000, Description: "ACME LLC"})

	res, err := svc.Link(ctx, "b1", []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{a.ID, b.ID}, res.Bank.MatchedTransactionIDs)

	for _, id := range []string{a.ID, b.ID} {
		tx, err := svc.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, tx.ClientStatus)
		assert.Equal(t, "b1", tx.ReferenceNumber)
	}

	res, err = svc.Unlink(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Bank.MatchedTransactionIDs)

	for _, id := range []string{a.ID, b.ID} {
		tx, err := svc.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, tx.ClientStatus)
		assert.Empty(t, tx.ReferenceNumber)
	}

	feed, err := svc.ListBankTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, feed[0].MatchedTransactionIDs)
}

func TestLink_EmptySelectionAndUnknownBank(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	seedBank(t, svc, domain.BankTransaction{ID: "b1", Type: domain.DirectionCredit, Amount: 10})

	res, err := svc.Link(ctx, "b1", nil)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = svc.Link(ctx, "nope", []string{"x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Unlink(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCandidates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	mustCreate(t, svc, domain.Transaction{Project: "Other", Amount: 5})
	match := mustCreate(t, svc, domain.Transaction{Project: "Acme Launch", Amount: 1000})
	mustCreate(t, svc, domain.Transaction{Project: "Rent", Amount: 1000, Type: domain.TypeExpense})
	seedBank(t, svc, domain.BankTransaction{ID: "b1", Type: domain.DirectionCredit, Amount: 1000, Description: "Transfer ACME"})

	cands, err := svc.Candidates(ctx, "b1", reconcileOptions("", 0))
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, match.ID, cands[0].Transaction.ID)
	assert.GreaterOrEqual(t, cands[0].Score, 500)
	assert.Contains(t, cands[0].Reasons, "Exact Amount")

	_, err = svc.Candidates(ctx, "missing", reconcileOptions("", 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateExpenseFromBank(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	seedBank(t, svc,
		domain.BankTransaction{ID: "d1", Date: "2025-02-03", Type: domain.DirectionDebit, Amount: 99, Vendor: "Adobe", Currency: domain.CurrencyUSD},
		domain.BankTransaction{ID: "c1", Type: domain.DirectionCredit, Amount: 10},
	)

	tx, err := svc.CreateExpenseFromBank(ctx, "d1", "software")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeExpense, tx.Type)
	assert.Equal(t, "Adobe", tx.Project)
	assert.Equal(t, 99.0, tx.Amount)
	assert.Equal(t, 99.0, tx.Net)
	assert.Equal(t, domain.CategorySoftware, tx.Category)
	assert.Equal(t, domain.StatusPaid, tx.PayoutStatus)
	assert.Equal(t, "d1", tx.PayoutRef)

	feed, err := svc.ListBankTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{tx.ID}, feed[0].MatchedTransactionIDs)

	_, err = svc.CreateExpenseFromBank(ctx, "c1", "Other")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateExpenseFromBank(ctx, "zz", "Other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTransaction_PrunesBankLinks(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	a := mustCreate(t, svc, domain.Transaction{Project: "A", Amount: 10})
	b := mustCreate(t, svc, domain.Transaction{Project: "B", Amount: 10})
	seedBank(t, svc, domain.BankTransaction{ID: "b1", Type: domain.DirectionCredit, Amount: 20})
	_, err := svc.Link(ctx, "b1", []string{a.ID, b.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteTransaction(ctx, a.ID), ErrNotFound)

	feed, err := svc.ListBankTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, feed[0].MatchedTransactionIDs)
}

func TestBankFeedMaintenance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	tx := mustCreate(t, svc, domain.Transaction{Project: "A", Amount: 10})
	seedBank(t, svc,
		domain.BankTransaction{ID: "b1", Type: domain.DirectionCredit, Amount: 10},
		domain.BankTransaction{ID: "b2", Type: domain.DirectionDebit, Amount: 3},
	)
	_, err := svc.Link(ctx, "b1", []string{tx.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBankTransaction(ctx, "b1"))
	got, err := svc.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.ClientStatus)
	assert.ErrorIs(t, svc.DeleteBankTransaction(ctx, "b1"), ErrNotFound)

	assert.ErrorIs(t, svc.ClearBankTransactions(ctx, false), ErrConfirmationRequired)
	feed, err := svc.ListBankTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, feed, 1)

	require.NoError(t, svc.ClearBankTransactions(ctx, true))
	feed, err = svc.ListBankTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestAppendBankTransactions_FillsDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})

	n, err := svc.AppendBankTransactions(ctx, []domain.BankTransaction{{Amount: 5, Type: domain.DirectionDebit}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	feed, err := svc.ListBankTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.NotEmpty(t, feed[0].ID)
	assert.Equal(t, fixedNow, feed[0].ImportedAt)
	assert.NotNil(t, feed[0].MatchedTransactionIDs)

	n, err = svc.AppendBankTransactions(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReports_CacheInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	mustCreate(t, svc, domain.Transaction{Date: "2024-05-01", Project: "A", Amount: 1050, ClientStatus: domain.StatusPaid})

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1050.0, dash.Income)

	mustCreate(t, svc, domain.Transaction{Date: "2025-05-01", Project: "B", Amount: 100, Currency: domain.CurrencyUSD})

	dash, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1417.25, dash.Income)
	assert.Equal(t, 2, dash.TransactionCount)

	annual, err := svc.AnnualReport(ctx)
	require.NoError(t, err)
	require.Len(t, annual, 2)
	assert.Equal(t, 2025, annual[0].Year)

	vat, err := svc.VATReport(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 50.0, vat.OutputCollected)
	assert.Equal(t, 50.0, vat.NetLiability)
}

func TestConfiguredRatesApplyToNewRowsOnly(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemoryBackend())

	first := New(st, Options{Now: func() time.Time { return fixedNow }})
	old, err := first.CreateTransaction(ctx, domain.Transaction{Project: "A", Amount: 1050})
	require.NoError(t, err)
	first.Close()

	second := New(st, Options{Rates: finance.NewRates(0.05, 0.20, 3.6725), Now: func() time.Time { return fixedNow }})
	defer second.Close()
	stored, err := second.GetTransaction(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, stored.Fee)

	fresh, err := second.CreateTransaction(ctx, domain.Transaction{Project: "B", Amount: 1050})
	require.NoError(t, err)
	assert.Equal(t, 200.0, fresh.Fee)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})
	mustCreate(t, svc, domain.Transaction{Project: "A", Amount: 10})

	assert.ErrorIs(t, svc.Reset(ctx, "delete all data"), ErrConfirmationRequired)
	txs, err := svc.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	require.NoError(t, svc.Reset(ctx, ResetPhrase))
	txs, err = svc.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Zero(t, dash.Income)
}

func TestUnavailableIntegrations(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})

	_, err := svc.SyncZoho(ctx)
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = svc.SyncNotion(ctx, true)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.ExportWarehouse(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.Ask(ctx, "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.ParseContact(ctx, attachment())
	assert.ErrorIs(t, err, ErrUnavailable)
}
