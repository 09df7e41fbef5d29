package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/dvloznov/agency-ledger/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct {
	FetchFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, uri)
	}
	return []byte("mock pdf data"), nil
}

type MockParser struct {
	ParseStatementFunc func(ctx context.Context, doc llm.Attachment) (*llm.StatementResult, error)
}

func (m *MockParser) ParseStatement(ctx context.Context, doc llm.Attachment) (*llm.StatementResult, error) {
	if m.ParseStatementFunc != nil {
		return m.ParseStatementFunc(ctx, doc)
	}
	return &llm.StatementResult{}, nil
}

type MockSink struct {
	AppendFunc func(ctx context.Context, lines []domain.BankTransaction) (int, error)
	calls      int
}

func (m *MockSink) AppendBankTransactions(ctx context.Context, lines []domain.BankTransaction) (int, error) {
	m.calls++
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, lines)
	}
	return len(lines), nil
}

const uri = "gs://bucket/uploads/2024/02/01/123e4567-e89b-12d3-a456-426614174000-feb.pdf"

func TestImportStatement(t *testing.T) {
	var gotDoc llm.Attachment
	parser := &MockParser{
		ParseStatementFunc: func(ctx context.Context, doc llm.Attachment) (*llm.StatementResult, error) {
			gotDoc = doc
			return &llm.StatementResult{
				Lines: []llm.StatementLine{
					{Date: "2024-02-01", Description: "INWARD TT ACME", Amount: 1050, Currency: domain.CurrencyAED, Direction: domain.DirectionCredit, Vendor: "Acme"},
					{Date: "2024-02-03", Description: "ADOBE", Amount: 99.5, Currency: domain.CurrencyUSD, Direction: domain.DirectionDebit, Category: domain.CategorySoftware},
				},
				Warnings: []string{"line 3 skipped: invalid date"},
			}, nil
		},
	}
	var stored []domain.BankTransaction
	sink := &MockSink{AppendFunc: func(ctx context.Context, lines []domain.BankTransaction) (int, error) {
		stored = lines
		return len(lines), nil
	}}

	state, err := pipeline.ImportStatement(context.Background(), &MockFetcher{}, parser, sink, uri, "")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", gotDoc.MIMEType)
	assert.Equal(t, []byte("mock pdf data"), gotDoc.Data)
	assert.Equal(t, "feb.pdf", state.FileName)
	assert.Equal(t, 2, state.Imported)
	assert.Equal(t, []string{"line 3 skipped: invalid date"}, state.Warnings())

	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.Equal(t, domain.DirectionCredit, stored[0].Type)
	assert.Equal(t, "Acme", stored[0].Vendor)
	assert.Equal(t, "feb.pdf", stored[0].SourceDocument)
	assert.Empty(t, stored[0].MatchedTransactionIDs)
	assert.Equal(t, domain.CategorySoftware, stored[1].Category)
}

func TestImportStatement_NothingParsed(t *testing.T) {
	sink := &MockSink{}
	state, err := pipeline.ImportStatement(context.Background(), &MockFetcher{}, &MockParser{}, sink, uri, "image/png")
	require.NoError(t, err)
	assert.Zero(t, state.Imported)
	assert.Zero(t, sink.calls)
}

func TestImportStatement_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *MockFetcher
		parser  *MockParser
		sink    *MockSink
		wantErr string
	}{
		{
			name: "fetch fails",
			fetcher: &MockFetcher{FetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
				return nil, errors.New("object not found")
			}},
			parser:  &MockParser{},
			sink:    &MockSink{},
			wantErr: "object not found",
		},
		{
			name:    "model fails",
			fetcher: &MockFetcher{},
			parser: &MockParser{ParseStatementFunc: func(ctx context.Context, doc llm.Attachment) (*llm.StatementResult, error) {
				return nil, errors.New("quota exceeded")
			}},
			sink:    &MockSink{},
			wantErr: "quota exceeded",
		},
		{
			name:    "store fails",
			fetcher: &MockFetcher{},
			parser: &MockParser{ParseStatementFunc: func(ctx context.Context, doc llm.Attachment) (*llm.StatementResult, error) {
				return &llm.StatementResult{Lines: []llm.StatementLine{{Date: "2024-01-01", Description: "x", Amount: 1}}}, nil
			}},
			sink: &MockSink{AppendFunc: func(ctx context.Context, lines []domain.BankTransaction) (int, error) {
				return 0, errors.New("disk full")
			}},
			wantErr: "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.ImportStatement(context.Background(), tt.fetcher, tt.parser, tt.sink, uri, "")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPipeline_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pipeline.NewStatementImportPipeline(&MockFetcher{}, &MockParser{}, &MockSink{}).
		Execute(ctx, &pipeline.PipelineState{DocumentURI: uri})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransformLinesStep_UsesClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := &pipeline.PipelineState{
		FileName: "mar.pdf",
		Parsed:   &llm.StatementResult{Lines: []llm.StatementLine{{Date: "2024-03-01", Description: "x", Amount: 5}}},
	}
	step := &pipeline.TransformLinesStep{Now: func() time.Time { return at }}
	require.NoError(t, step.Execute(context.Background(), state))
	require.Len(t, state.BankLines, 1)
	assert.Equal(t, at, state.BankLines[0].ImportedAt)

	assert.Error(t, step.Execute(context.Background(), &pipeline.PipelineState{}))
}
