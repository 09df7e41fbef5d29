package books

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/shopspring/decimal"
)

// Dashboard returns the headline summary of the books.
func (s *Service) Dashboard(ctx context.Context) (finance.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cached(s, "dashboard", func() (finance.Dashboard, error) {
		feed, txs, err := s.loadReconciliation(ctx)
		if err != nil {
			return finance.Dashboard{}, fmt.Errorf("Dashboard: %w", err)
		}
		return finance.Summarize(txs, feed, s.rates), nil
	})
}

// AnnualReport returns per-year totals, newest first.
func (s *Service) AnnualReport(ctx context.Context) ([]finance.YearTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cached(s, "annual", func() ([]finance.YearTotals, error) {
		txs, err := s.transactions.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("AnnualReport: %w", err)
		}
		return finance.AnnualRollup(txs, s.rates), nil
	})
}

// VATReport returns the VAT position for year, or for the whole ledger when year is 0.
func (s *Service) VATReport(ctx context.Context, year int) (finance.VATSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cached(s, fmt.Sprintf("vat:%d", year), func() (finance.VATSummary, error) {
		txs, err := s.transactions.Load(ctx)
		if err != nil {
			return finance.VATSummary{}, fmt.Errorf("VATReport: %w", err)
		}
		return finance.VATCenter(txs, s.rates, year), nil
	})
}

// booksSnapshot is the JSON summary handed to the assistant.
type booksSnapshot struct {
	Dashboard finance.Dashboard    `json:"dashboard"`
	Annual    []finance.YearTotals `json:"annual"`
	VAT       finance.VATSummary   `json:"vat"`
	Campaigns int                  `json:"campaigns"`
}

func (s *Service) snapshotJSON(ctx context.Context) (string, error) {
	dash, err := s.Dashboard(ctx)
	if err != nil {
		return "", err
	}
	annual, err := s.AnnualReport(ctx)
	if err != nil {
		return "", err
	}
	vat, err := s.VATReport(ctx, 0)
	if err != nil {
		return "", err
	}
	camps, err := s.ListCampaigns(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(booksSnapshot{
		Dashboard: dash,
		Annual:    annual,
		VAT:       vat,
		Campaigns: len(camps),
	})
	if err != nil {
		return "", fmt.Errorf("snapshotJSON: %w", err)
	}
	return string(data), nil
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
