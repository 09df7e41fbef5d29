package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/dvloznov/agency-ledger/internal/reconcile"
	"github.com/google/uuid"
)

// LinkResult reports whether a link or unlink changed anything.
type LinkResult struct {
	Changed bool                   `json:"changed"`
	Bank    domain.BankTransaction `json:"bankTransaction"`
}

// ListBankTransactions returns the bank feed in import order.
func (s *Service) ListBankTransactions(ctx context.Context) ([]domain.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.bank.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBankTransactions: %w", err)
	}
	if lines == nil {
		lines = []domain.BankTransaction{}
	}
	return lines, nil
}

// AppendBankTransactions adds parsed statement lines to the feed.
func (s *Service) AppendBankTransactions(ctx context.Context, lines []domain.BankTransaction) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.bank.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("AppendBankTransactions: %w", err)
	}
	now := s.now()
	for i := range lines {
		if lines[i].ID == "" {
			lines[i].ID = uuid.NewString()
		}
		if lines[i].ImportedAt.IsZero() {
			lines[i].ImportedAt = now
		}
		if lines[i].MatchedTransactionIDs == nil {
			lines[i].MatchedTransactionIDs = []string{}
		}
	}
	feed = append(feed, lines...)
	if err := s.bank.Save(ctx, feed); err != nil {
		return 0, fmt.Errorf("AppendBankTransactions: %w", err)
	}
	return len(lines), nil
}

// ClearBankTransactions drops the whole feed. Ledger rows keep their statuses.
func (s *Service) ClearBankTransactions(ctx context.Context, confirm bool) error {
	if !confirm {
		return fmt.Errorf("ClearBankTransactions: %w", ErrConfirmationRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bank.Save(ctx, []domain.BankTransaction{}); err != nil {
		return fmt.Errorf("ClearBankTransactions: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Warn().Msg("Bank feed cleared")
	return nil
}

// DeleteBankTransaction unlinks and removes one bank line.
func (s *Service) DeleteBankTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ledger, err := s.loadReconciliation(ctx)
	if err != nil {
		return fmt.Errorf("DeleteBankTransaction: %w", err)
	}
	idx := indexOfBank(feed, id)
	if idx < 0 {
		return notFound("DeleteBankTransaction", "bank transaction", id)
	}

	if reconcile.Unlink(&feed[idx], ledger) {
		if err := s.transactions.Save(ctx, ledger); err != nil {
			return fmt.Errorf("DeleteBankTransaction: %w", err)
		}
	}
	feed = append(feed[:idx], feed[idx+1:]...)
	if err := s.bank.Save(ctx, feed); err != nil {
		return fmt.Errorf("DeleteBankTransaction: %w", err)
	}
	return nil
}

// Candidates ranks the ledger rows that could settle a bank line.
func (s *Service) Candidates(ctx context.Context, bankID string, opts reconcile.Options) ([]reconcile.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ledger, err := s.loadReconciliation(ctx)
	if err != nil {
		return nil, fmt.Errorf("Candidates: %w", err)
	}
	idx := indexOfBank(feed, bankID)
	if idx < 0 {
		return nil, notFound("Candidates", "bank transaction", bankID)
	}
	return reconcile.Candidates(&feed[idx], ledger, opts), nil
}

// Link makes ids the ledger rows settling the bank line. An empty selection
// is a no-op. Both collections are rewritten when anything changes.
func (s *Service) Link(ctx context.Context, bankID string, ids []string) (*LinkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ledger, err := s.loadReconciliation(ctx)
	if err != nil {
		return nil, fmt.Errorf("Link: %w", err)
	}
	idx := indexOfBank(feed, bankID)
	if idx < 0 {
		return nil, notFound("Link", "bank transaction", bankID)
	}

	changed := reconcile.Link(&feed[idx], ledger, ids)
	if changed {
		if err := s.saveReconciliation(ctx, feed, ledger); err != nil {
			return nil, fmt.Errorf("Link: %w", err)
		}
		log := logger.FromContext(ctx)
		log.Info().
			Str("bank_id", bankID).
			Strs("transaction_ids", feed[idx].MatchedTransactionIDs).
			Msg("Bank line linked")
	}
	return &LinkResult{Changed: changed, Bank: feed[idx]}, nil
}

// Unlink clears every link of the bank line and resets the affected rows to Pending.
func (s *Service) Unlink(ctx context.Context, bankID string) (*LinkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ledger, err := s.loadReconciliation(ctx)
	if err != nil {
		return nil, fmt.Errorf("Unlink: %w", err)
	}
	idx := indexOfBank(feed, bankID)
	if idx < 0 {
		return nil, notFound("Unlink", "bank transaction", bankID)
	}

	changed := reconcile.Unlink(&feed[idx], ledger)
	if changed {
		if err := s.saveReconciliation(ctx, feed, ledger); err != nil {
			return nil, fmt.Errorf("Unlink: %w", err)
		}
		log := logger.FromContext(ctx)
		log.Info().Str("bank_id", bankID).Msg("Bank line unlinked")
	}
	return &LinkResult{Changed: changed, Bank: feed[idx]}, nil
}

// CreateExpenseFromBank books an expense for a debit line and links it
// alongside any rows already linked.
func (s *Service) CreateExpenseFromBank(ctx context.Context, bankID, category string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ledger, err := s.loadReconciliation(ctx)
	if err != nil {
		return nil, fmt.Errorf("CreateExpenseFromBank: %w", err)
	}
	idx := indexOfBank(feed, bankID)
	if idx < 0 {
		return nil, notFound("CreateExpenseFromBank", "bank transaction", bankID)
	}

	tx, err := reconcile.ExpenseFromBank(&feed[idx], domain.NormalizeCategory(category))
	if errors.Is(err, reconcile.ErrNotDebit) {
		return nil, fmt.Errorf("CreateExpenseFromBank: %w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("CreateExpenseFromBank: %w", err)
	}
	tx.ID = uuid.NewString()
	s.rates.Apply(&tx)
	ledger = append(ledger, tx)

	ids := append(append([]string{}, feed[idx].MatchedTransactionIDs...), tx.ID)
	reconcile.Link(&feed[idx], ledger, ids)
	if err := s.saveReconciliation(ctx, feed, ledger); err != nil {
		return nil, fmt.Errorf("CreateExpenseFromBank: %w", err)
	}

	created := ledger[len(ledger)-1]
	log := logger.FromContext(ctx)
	log.Info().
		Str("bank_id", bankID).
		Str("transaction_id", created.ID).
		Msg("Expense created from bank line")
	return &created, nil
}

func (s *Service) loadReconciliation(ctx context.Context) ([]domain.BankTransaction, []domain.Transaction, error) {
	feed, err := s.bank.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return feed, ledger, nil
}

func (s *Service) saveReconciliation(ctx context.Context, feed []domain.BankTransaction, ledger []domain.Transaction) error {
	if err := s.transactions.Save(ctx, ledger); err != nil {
		return err
	}
	return s.bank.Save(ctx, feed)
}

func indexOfBank(feed []domain.BankTransaction, id string) int {
	for i := range feed {
		if feed[i].ID == id {
			return i
		}
	}
	return -1
}
