// Package reconcile matches bank statement lines against ledger rows and
// maintains the links between them.
package reconcile

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/agency-ledger/internal/domain"
)

const (
	// ExactAmountScore is awarded when the amounts agree to the cent.
	ExactAmountScore = 500
	// NameMatchScore is awarded per project word found on the bank line.
	NameMatchScore = 100

	ReasonExactAmount = "Exact Amount"
	ReasonNameMatch   = "Name Match"

	amountTolerance = 0.01
	minWordLength   = 4
)

// Candidate is a ledger row offered as a match for a bank line.
type Candidate struct {
	Transaction domain.Transaction `json:"transaction"`
	Score       int                `json:"score"`
	Reasons     []string           `json:"reasons"`
	Linked      bool               `json:"linked"`
}

// Options narrows the candidate list.
type Options struct {
	// Query matches project or customer name, case-insensitively.
	Query string
	// Limit caps the result size when positive.
	Limit int
}

// Score rates how well tx explains the bank line. Amounts are compared as
// raw numbers without currency conversion.
func Score(bank *domain.BankTransaction, tx *domain.Transaction) (int, []string) {
	score := 0
	var reasons []string

	if math.Abs(bank.Amount-tx.Amount) < amountTolerance {
		score += ExactAmountScore
		reasons = append(reasons, ReasonExactAmount)
	}

	haystack := strings.ToLower(bank.Description + " " + bank.Vendor)
	named := false
	for _, word := range strings.Fields(strings.ToLower(tx.Project)) {
		if utf8.RuneCountInString(word) < minWordLength {
			continue
		}
		if strings.Contains(haystack, word) {
			score += NameMatchScore
			named = true
		}
	}
	if named {
		reasons = append(reasons, ReasonNameMatch)
	}

	return score, reasons
}

// Candidates lists ledger rows of the type this bank line can settle.
// Rows already linked come first, then by descending score; ledger order breaks ties.
func Candidates(bank *domain.BankTransaction, ledger []domain.Transaction, opts Options) []Candidate {
	want := bank.Type.LedgerType()
	query := strings.ToLower(strings.TrimSpace(opts.Query))

	out := make([]Candidate, 0)
	for i := range ledger {
		tx := &ledger[i]
		if tx.Type != want {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(tx.Project), query) &&
			!strings.Contains(strings.ToLower(tx.CustomerName), query) {
			continue
		}
		score, reasons := Score(bank, tx)
		out = append(out, Candidate{
			Transaction: *tx,
			Score:       score,
			Reasons:     reasons,
			Linked:      bank.HasMatch(tx.ID),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Linked != out[j].Linked {
			return out[i].Linked
		}
		return out[i].Score > out[j].Score
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
