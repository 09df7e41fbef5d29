package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/dvloznov/agency-ledger/internal/ratecard"
	"github.com/google/uuid"
)

// RateCardParseResult is the card stored after parsing a document.
type RateCardParseResult struct {
	RateCard domain.RateCard `json:"rateCard"`
	Warnings []string        `json:"warnings,omitempty"`
}

// GetRateCard returns the stored rate card.
func (s *Service) GetRateCard(ctx context.Context) (*domain.RateCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.rateCard.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetRateCard: %w", err)
	}
	if card.Items == nil {
		card.Items = []domain.RateCardItem{}
	}
	return &card, nil
}

// SetRateCard replaces the rate card. Items without an id get one.
func (s *Service) SetRateCard(ctx context.Context, card domain.RateCard) (*domain.RateCard, error) {
	if err := normalizeRateCard(&card); err != nil {
		return nil, fmt.Errorf("SetRateCard: %w", err)
	}
	if card.Source == "" {
		card.Source = domain.SourceManual
	}
	card.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rateCard.Save(ctx, card); err != nil {
		return nil, fmt.Errorf("SetRateCard: %w", err)
	}
	return &card, nil
}

// ParseRateCard reads a rate card out of a document and stores it when at
// least one item was recognised. A model failure keeps the current card.
func (s *Service) ParseRateCard(ctx context.Context, name string, doc llm.Attachment) (*RateCardParseResult, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("ParseRateCard: parser: %w", ErrUnavailable)
	}

	res, err := s.parser.ParseRateCard(ctx, doc)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Rate card parsing failed")
		current, cerr := s.GetRateCard(ctx)
		if cerr != nil {
			return nil, fmt.Errorf("ParseRateCard: %w", cerr)
		}
		return &RateCardParseResult{
			RateCard: *current,
			Warnings: []string{fmt.Sprintf("could not read rate card: %v", err)},
		}, nil
	}

	out := &RateCardParseResult{Warnings: res.Warnings}
	if len(res.Items) == 0 {
		current, err := s.GetRateCard(ctx)
		if err != nil {
			return nil, fmt.Errorf("ParseRateCard: %w", err)
		}
		out.RateCard = *current
		out.Warnings = append(out.Warnings, "no rate card items recognised")
		return out, nil
	}

	card, err := s.SetRateCard(ctx, domain.RateCard{Items: res.Items, Source: name})
	if err != nil {
		return nil, fmt.Errorf("ParseRateCard: %w", err)
	}
	out.RateCard = *card
	return out, nil
}

// Quote prices a request against the stored rate card.
func (s *Service) Quote(ctx context.Context, req ratecard.Request) (*ratecard.Quote, error) {
	card, err := s.GetRateCard(ctx)
	if err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}
	q, err := ratecard.Build(*card, req, s.rates)
	if errors.Is(err, ratecard.ErrUnknownItem) || errors.Is(err, ratecard.ErrEmptyQuote) {
		return nil, fmt.Errorf("Quote: %w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}
	q.CreatedAt = s.now()
	return q, nil
}

func normalizeRateCard(card *domain.RateCard) error {
	items := make([]domain.RateCardItem, 0, len(card.Items))
	for _, it := range card.Items {
		it.Deliverable = strings.TrimSpace(it.Deliverable)
		it.Platform = strings.TrimSpace(it.Platform)
		if it.Deliverable == "" {
			return invalid("normalizeRateCard", "rate card item without deliverable")
		}
		if it.Rate < 0 {
			return invalid("normalizeRateCard", fmt.Sprintf("negative rate for %q", it.Deliverable))
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.Currency = domain.ParseCurrency(string(it.Currency))
		items = append(items, it)
	}
	card.Items = items
	return nil
}
