package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Direction is the side of the account a bank line hits.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// ParseDirection defaults to debit for anything that is not "credit".
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(DirectionCredit)) {
		return DirectionCredit
	}
	return DirectionDebit
}

// LedgerType is the ledger row type that can settle a bank line in this direction.
func (d Direction) LedgerType() TransactionType {
	if d == DirectionCredit {
		return TypeIncome
	}
	return TypeExpense
}

// BankTransaction is one imported bank statement line.
type BankTransaction struct {
	ID                    string    `json:"id"`
	Date                  string    `json:"date"`
	Amount                float64   `json:"amount"`
	Currency              Currency  `json:"currency"`
	Type                  Direction `json:"type"`
	Vendor                string    `json:"vendor,omitempty"`
	Description           string    `json:"description"`
	Category              Category  `json:"category,omitempty"`
	MatchedTransactionIDs []string  `json:"matchedTransactionIds"`
	ImportedAt            time.Time `json:"importedAt"`
	SourceDocument        string    `json:"sourceDocument,omitempty"`
}

// IsMatched reports whether at least one ledger row settles this line.
func (b *BankTransaction) IsMatched() bool {
	return len(b.MatchedTransactionIDs) > 0
}

// HasMatch reports whether txID is linked to this line.
func (b *BankTransaction) HasMatch(txID string) bool {
	for _, id := range b.MatchedTransactionIDs {
		if id == txID {
			return true
		}
	}
	return false
}

// UnmarshalJSON also accepts the legacy comma-joined "matchedTransactionId" field.
func (b *BankTransaction) UnmarshalJSON(data []byte) error {
	type plain BankTransaction
	aux := struct {
		*plain
		Legacy string `json:"matchedTransactionId"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(b.MatchedTransactionIDs) == 0 && aux.Legacy != "" {
		b.MatchedTransactionIDs = UniqueIDs(strings.Split(aux.Legacy, ","))
	}
	return nil
}

// UniqueIDs trims, drops empties and removes duplicates while keeping order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
