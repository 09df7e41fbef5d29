package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/agency-ledger/internal/documents"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PipelineStep represents a single step in the statement import.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	DocumentURI string
	MIMEType    string
	FileName    string

	Document  []byte
	Parsed    *llm.StatementResult
	BankLines []domain.BankTransaction
	Imported  int
}

// Warnings returns the parser warnings, if any.
func (s *PipelineState) Warnings() []string {
	if s.Parsed == nil {
		return nil
	}
	return s.Parsed.Warnings
}

// FetchDocumentStep loads the uploaded statement.
type FetchDocumentStep struct {
	Fetcher DocumentFetcher
}

func (s *FetchDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Fetcher.Fetch(ctx, state.DocumentURI)
	if err != nil {
		return fmt.Errorf("FetchDocumentStep: %w", err)
	}
	state.Document = data
	if state.FileName == "" {
		state.FileName = documents.FilenameFromURI(state.DocumentURI)
	}
	if state.MIMEType == "" {
		state.MIMEType = documents.DetectMIME(state.FileName, "application/pdf")
	}
	return nil
}

// ParseStatementStep sends the document to the model.
type ParseStatementStep struct {
	Parser StatementParser
}

func (s *ParseStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	res, err := s.Parser.ParseStatement(ctx, llm.Attachment{MIMEType: state.MIMEType, Data: state.Document})
	if err != nil {
		return fmt.Errorf("ParseStatementStep: %w", err)
	}
	for _, w := range res.Warnings {
		log.Warn().Str("document_uri", state.DocumentURI).Str("warning", w).Msg("Statement line dropped")
	}
	state.Parsed = res
	return nil
}

// TransformLinesStep turns parsed lines into unmatched bank records.
type TransformLinesStep struct {
	Now func() time.Time
}

func (s *TransformLinesStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Parsed == nil {
		return fmt.Errorf("TransformLinesStep: no parsed statement")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	importedAt := now().UTC()

	lines := make([]domain.BankTransaction, 0, len(state.Parsed.Lines))
	for _, l := range state.Parsed.Lines {
		lines = append(lines, domain.BankTransaction{
			ID:                    uuid.NewString(),
			Date:                  l.Date,
			Amount:                l.Amount,
			Currency:              l.Currency,
			Type:                  l.Direction,
			Vendor:                l.Vendor,
			Description:           l.Description,
			Category:              l.Category,
			MatchedTransactionIDs: []string{},
			ImportedAt:            importedAt,
			SourceDocument:        state.FileName,
		})
	}
	state.BankLines = lines
	return nil
}

// AppendBankLinesStep commits the batch to the bank feed.
type AppendBankLinesStep struct {
	Sink BankSink
}

func (s *AppendBankLinesStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.BankLines) == 0 {
		return nil
	}
	n, err := s.Sink.AppendBankTransactions(ctx, state.BankLines)
	if err != nil {
		return fmt.Errorf("AppendBankLinesStep: %w", err)
	}
	state.Imported = n
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d: %w", i+1, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewStatementImportPipeline wires the four statement import steps.
func NewStatementImportPipeline(fetcher DocumentFetcher, parser StatementParser, sink BankSink) *Pipeline {
	return NewPipeline(
		&FetchDocumentStep{Fetcher: fetcher},
		&ParseStatementStep{Parser: parser},
		&TransformLinesStep{},
		&AppendBankLinesStep{Sink: sink},
	)
}

// ImportStatement runs the statement import for one stored document.
func ImportStatement(ctx context.Context, fetcher DocumentFetcher, parser StatementParser, sink BankSink, uri, mimeType string) (*PipelineState, error) {
	state := &PipelineState{DocumentURI: uri, MIMEType: mimeType}
	if err := NewStatementImportPipeline(fetcher, parser, sink).Execute(ctx, state); err != nil {
		return state, fmt.Errorf("ImportStatement: %w", err)
	}
	log.Info().
		Str("document_uri", uri).
		Int("imported", state.Imported).
		Int("warnings", len(state.Warnings())).
		Msg("Statement imported")
	return state, nil
}
