package books

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/importer"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/google/uuid"
)

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Year    int
	Type    domain.TransactionType
	Project string
	// Query matches project, customer or invoice number, case-insensitively.
	Query string
}

func (f TransactionFilter) match(tx *domain.Transaction) bool {
	if f.Year != 0 && tx.Year != f.Year {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Project != "" && tx.Project != f.Project {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(tx.Project), q) ||
			strings.Contains(strings.ToLower(tx.CustomerName), q) ||
			strings.Contains(strings.ToLower(tx.InvoiceNumber), q)
	}
	return true
}

// StatusPatch changes the status of one or both legs of a row.
type StatusPatch struct {
	ClientStatus string `json:"clientStatus,omitempty"`
	PayoutStatus string `json:"ladlyStatus,omitempty"`
}

// BulkPatch is applied to every selected row. Empty fields are left alone.
type BulkPatch struct {
	StatusPatch
	Category string `json:"category,omitempty"`
	Project  string `json:"project,omitempty"`
}

// ListTransactions returns the ledger rows matching f in stored order.
func (s *Service) ListTransactions(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	out := make([]domain.Transaction, 0, len(txs))
	for i := range txs {
		if f.match(&txs[i]) {
			out = append(out, txs[i])
		}
	}
	return out, nil
}

// GetTransaction returns one ledger row.
func (s *Service) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	for i := range txs {
		if txs[i].ID == id {
			return &txs[i], nil
		}
	}
	return nil, notFound("GetTransaction", "transaction", id)
}

// CreateTransaction validates tx, derives its money fields and appends it.
func (s *Service) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if err := s.prepare(&tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	tx.ID = uuid.NewString()
	if tx.Source == "" {
		tx.Source = domain.SourceManual
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	txs = append(txs, tx)
	if err := s.transactions.Save(ctx, txs); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", tx.ID).
		Str("project", tx.Project).
		Float64("amount", tx.Amount).
		Msg("Transaction created")
	return &tx, nil
}

// UpdateTransaction replaces the editable fields of a row and re-derives
// its money fields. Bank back-references are kept.
func (s *Service) UpdateTransaction(ctx context.Context, id string, in domain.Transaction) (*domain.Transaction, error) {
	if err := s.prepare(&in); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		prev := txs[i]
		in.ID = prev.ID
		in.Source = prev.Source
		if in.ReferenceNumber == "" {
			in.ReferenceNumber = prev.ReferenceNumber
		}
		if in.PayoutRef == "" {
			in.PayoutRef = prev.PayoutRef
		}
		if in.MergedFrom == "" {
			in.MergedFrom = prev.MergedFrom
		}
		txs[i] = in
		if err := s.transactions.Save(ctx, txs); err != nil {
			return nil, fmt.Errorf("UpdateTransaction: %w", err)
		}
		return &txs[i], nil
	}
	return nil, notFound("UpdateTransaction", "transaction", id)
}

// SetTransactionStatus patches the status of a row without touching money fields.
func (s *Service) SetTransactionStatus(ctx context.Context, id string, patch StatusPatch) (*domain.Transaction, error) {
	if patch.ClientStatus == "" && patch.PayoutStatus == "" {
		return nil, invalid("SetTransactionStatus", "no status given")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("SetTransactionStatus: %w", err)
	}
	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		if err := applyStatus(&txs[i], patch); err != nil {
			return nil, fmt.Errorf("SetTransactionStatus: %w", err)
		}
		if err := s.transactions.Save(ctx, txs); err != nil {
			return nil, fmt.Errorf("SetTransactionStatus: %w", err)
		}
		return &txs[i], nil
	}
	return nil, notFound("SetTransactionStatus", "transaction", id)
}

// DeleteTransaction removes a row and drops it from any bank line linking it.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	n, err := s.BulkDeleteTransactions(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if n == 0 {
		return notFound("DeleteTransaction", "transaction", id)
	}
	return nil
}

// BulkDeleteTransactions removes every listed row and returns how many existed.
func (s *Service) BulkDeleteTransactions(ctx context.Context, ids []string) (int, error) {
	ids = domain.UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("BulkDeleteTransactions: %w", err)
	}
	kept := txs[:0]
	for _, tx := range txs {
		if !drop[tx.ID] {
			kept = append(kept, tx)
		}
	}
	removed := len(txs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.transactions.Save(ctx, kept); err != nil {
		return 0, fmt.Errorf("BulkDeleteTransactions: %w", err)
	}

	lines, err := s.bank.Load(ctx)
	if err != nil {
		return removed, fmt.Errorf("BulkDeleteTransactions: %w", err)
	}
	pruned := false
	for i := range lines {
		matched := make([]string, 0, len(lines[i].MatchedTransactionIDs))
		for _, id := range lines[i].MatchedTransactionIDs {
			if !drop[id] {
				matched = append(matched, id)
			}
		}
		if len(matched) != len(lines[i].MatchedTransactionIDs) {
			lines[i].MatchedTransactionIDs = matched
			pruned = true
		}
	}
	if pruned {
		if err := s.bank.Save(ctx, lines); err != nil {
			return removed, fmt.Errorf("BulkDeleteTransactions: %w", err)
		}
	}
	return removed, nil
}

// BulkUpdateTransactions applies patch to every listed row and returns how many changed.
func (s *Service) BulkUpdateTransactions(ctx context.Context, ids []string, patch BulkPatch) (int, error) {
	ids = domain.UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	if patch.ClientStatus == "" && patch.PayoutStatus == "" && patch.Category == "" && strings.TrimSpace(patch.Project) == "" {
		return 0, invalid("BulkUpdateTransactions", "empty patch")
	}
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("BulkUpdateTransactions: %w", err)
	}
	changed := 0
	for i := range txs {
		if !selected[txs[i].ID] {
			continue
		}
		if err := applyStatus(&txs[i], patch.StatusPatch); err != nil {
			return 0, fmt.Errorf("BulkUpdateTransactions: %w", err)
		}
		if patch.Category != "" {
			txs[i].Category = domain.NormalizeCategory(patch.Category)
		}
		if p := strings.TrimSpace(patch.Project); p != "" {
			txs[i].Project = p
		}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.transactions.Save(ctx, txs); err != nil {
		return 0, fmt.Errorf("BulkUpdateTransactions: %w", err)
	}
	return changed, nil
}

// ImportExcel transforms a workbook and appends every row. Nothing is
// written when the workbook cannot be read.
func (s *Service) ImportExcel(ctx context.Context, r io.Reader) (*importer.ExcelResult, error) {
	res, err := importer.ParseExcel(r, s.rates, s.now())
	if err != nil {
		return nil, fmt.Errorf("ImportExcel: %w: %w", ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ImportExcel: %w", err)
	}
	txs = append(txs, res.Transactions...)
	if err := s.transactions.Save(ctx, txs); err != nil {
		return nil, fmt.Errorf("ImportExcel: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("sheet", res.Sheet).
		Int("imported", len(res.Transactions)).
		Int("skipped", res.Skipped).
		Int("warnings", len(res.Warnings)).
		Msg("Excel import committed")
	return res, nil
}

// prepare normalises user input and derives the money fields.
func (s *Service) prepare(tx *domain.Transaction) error {
	if tx.Amount < 0 {
		return invalid("prepare", "amount must not be negative")
	}
	if tx.VAT < 0 {
		return invalid("prepare", "vat must not be negative")
	}

	tx.Date = strings.TrimSpace(tx.Date)
	if tx.Date == "" {
		tx.Date = s.today()
	}
	d, err := time.Parse(domain.DateLayout, tx.Date)
	if err != nil {
		return invalid("prepare", fmt.Sprintf("date %q is not YYYY-MM-DD", tx.Date))
	}
	tx.Year = d.Year()

	tx.Project = strings.TrimSpace(tx.Project)
	if tx.Project == "" {
		return invalid("prepare", "project is required")
	}
	tx.CustomerName = strings.TrimSpace(tx.CustomerName)
	tx.InvoiceNumber = strings.TrimSpace(tx.InvoiceNumber)
	tx.Currency = domain.ParseCurrency(string(tx.Currency))
	tx.Type = domain.ParseTransactionType(string(tx.Type))
	tx.Category = domain.NormalizeCategory(string(tx.Category))

	if tx.ClientStatus == "" {
		tx.ClientStatus = domain.StatusPending
	} else if st, ok := domain.ParseStatus(string(tx.ClientStatus)); ok {
		tx.ClientStatus = st
	} else {
		return invalid("prepare", fmt.Sprintf("unknown client status %q", tx.ClientStatus))
	}
	if tx.PayoutStatus == "" {
		tx.PayoutStatus = domain.StatusPending
	} else if st, ok := domain.ParseStatus(string(tx.PayoutStatus)); ok {
		tx.PayoutStatus = st
	} else {
		return invalid("prepare", fmt.Sprintf("unknown payout status %q", tx.PayoutStatus))
	}

	if tx.Type == domain.TypeExpense && tx.VAT > tx.Amount {
		return invalid("prepare", "vat exceeds amount")
	}
	s.rates.Apply(tx)
	return nil
}

func applyStatus(tx *domain.Transaction, patch StatusPatch) error {
	if patch.ClientStatus != "" {
		st, ok := domain.ParseStatus(patch.ClientStatus)
		if !ok {
			return invalid("applyStatus", fmt.Sprintf("unknown client status %q", patch.ClientStatus))
		}
		tx.ClientStatus = st
	}
	if patch.PayoutStatus != "" {
		st, ok := domain.ParseStatus(patch.PayoutStatus)
		if !ok {
			return invalid("applyStatus", fmt.Sprintf("unknown payout status %q", patch.PayoutStatus))
		}
		tx.PayoutStatus = st
	}
	return nil
}
