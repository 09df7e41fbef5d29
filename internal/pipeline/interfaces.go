package pipeline

import (
	"context"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/llm"
)

// DocumentFetcher reads a stored upload back by URI.
type DocumentFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// StatementParser turns a statement document into validated lines.
type StatementParser interface {
	ParseStatement(ctx context.Context, doc llm.Attachment) (*llm.StatementResult, error)
}

// BankSink persists imported bank lines and reports how many were stored.
type BankSink interface {
	AppendBankTransactions(ctx context.Context, lines []domain.BankTransaction) (int, error)
}
