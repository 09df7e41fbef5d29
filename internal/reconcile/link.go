package reconcile

import (
	"errors"
	"strings"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
)

// ErrNotDebit is returned when an expense is requested for a credit line.
var ErrNotDebit = errors.New("bank line is not a debit")

// Link makes ids the set of ledger rows settling bank. Each linked row is
// marked Paid on the leg matching the bank direction and points back to the
// bank line. Ids of unknown rows or of rows of the other type are ignored.
// Rows dropped from a previous selection are released. An empty selection
// changes nothing.
func Link(bank *domain.BankTransaction, ledger []domain.Transaction, ids []string) bool {
	ids = domain.UniqueIDs(ids)
	if len(ids) == 0 {
		return false
	}

	index := indexByID(ledger)
	want := bank.Type.LedgerType()
	selected := make([]string, 0, len(ids))
	for _, id := range ids {
		if i, ok := index[id]; ok && ledger[i].Type == want {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		return false
	}

	keep := make(map[string]bool, len(selected))
	for _, id := range selected {
		keep[id] = true
	}
	for _, id := range bank.MatchedTransactionIDs {
		if i, ok := index[id]; ok && !keep[id] {
			release(bank.Type, &ledger[i])
		}
	}

	for _, id := range selected {
		settle(bank, &ledger[index[id]])
	}
	bank.MatchedTransactionIDs = selected
	return true
}

// Unlink clears every link of bank, resetting the affected rows to Pending.
func Unlink(bank *domain.BankTransaction, ledger []domain.Transaction) bool {
	if !bank.IsMatched() {
		return false
	}
	index := indexByID(ledger)
	for _, id := range bank.MatchedTransactionIDs {
		if i, ok := index[id]; ok {
			release(bank.Type, &ledger[i])
		}
	}
	bank.MatchedTransactionIDs = nil
	return true
}

// ExpenseFromBank builds an expense row for an unmatched debit. The caller
// assigns the id and appends it to the ledger before linking.
func ExpenseFromBank(bank *domain.BankTransaction, category domain.Category) (domain.Transaction, error) {
	if bank.Type != domain.DirectionDebit {
		return domain.Transaction{}, ErrNotDebit
	}

	project := strings.TrimSpace(bank.Vendor)
	if project == "" {
		project = strings.TrimSpace(bank.Description)
	}

	tx := domain.Transaction{
		Date:         bank.Date,
		Year:         yearOf(bank.Date),
		Project:      project,
		CustomerName: bank.Vendor,
		Amount:       bank.Amount,
		Currency:     bank.Currency,
		Type:         domain.TypeExpense,
		Category:     category,
		ClientStatus: domain.StatusPaid,
		PayoutStatus: domain.StatusPending,
		Notes:        bank.Description,
		Source:       domain.SourceBank,
	}
	if tx.Currency == "" {
		tx.Currency = domain.CurrencyAED
	}
	return tx, nil
}

func settle(bank *domain.BankTransaction, tx *domain.Transaction) {
	if bank.Type == domain.DirectionCredit {
		tx.ClientStatus = domain.StatusPaid
		tx.ReferenceNumber = bank.ID
		return
	}
	tx.PayoutStatus = domain.StatusPaid
	tx.PayoutRef = bank.ID
}

func release(dir domain.Direction, tx *domain.Transaction) {
	if dir == domain.DirectionCredit {
		tx.ClientStatus = domain.StatusPending
		tx.ReferenceNumber = ""
		return
	}
	tx.PayoutStatus = domain.StatusPending
	tx.PayoutRef = ""
}

func indexByID(ledger []domain.Transaction) map[string]int {
	index := make(map[string]int, len(ledger))
	for i := range ledger {
		index[ledger[i].ID] = i
	}
	return index
}

func yearOf(date string) int {
	tx := domain.Transaction{Date: date}
	if d := tx.DateOrZero(); !d.IsZero() {
		return d.Year()
	}
	return time.Now().Year()
}
