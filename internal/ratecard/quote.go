package ratecard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownItem is returned when a quote line names an item that is not on the card.
	ErrUnknownItem = errors.New("unknown rate card item")
	// ErrEmptyQuote is returned when a quote has no lines.
	ErrEmptyQuote = errors.New("quote has no lines")
)

// LineRequest asks for quantity units of a rate card item.
type LineRequest struct {
	ItemID   string  `json:"itemId"`
	Quantity float64 `json:"quantity"`
}

// Request describes the quote to build.
type Request struct {
	Client   string          `json:"client"`
	Currency domain.Currency `json:"currency"`
	Lines    []LineRequest   `json:"lines"`
}

// QuoteLine is one priced line of a quote.
type QuoteLine struct {
	ItemID      string  `json:"itemId"`
	Platform    string  `json:"platform"`
	Deliverable string  `json:"deliverable"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    float64 `json:"quantity"`
	Total       float64 `json:"total"`
}

// Quote is a priced offer built from the rate card.
type Quote struct {
	Client    string          `json:"client"`
	Currency  domain.Currency `json:"currency"`
	Lines     []QuoteLine     `json:"lines"`
	Subtotal  float64         `json:"subtotal"`
	VATRate   float64         `json:"vatRate"`
	VAT       float64         `json:"vat"`
	Total     float64         `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Build prices req against card. Unit prices are converted into the quote
// currency at the fixed peg and rounded to 2 dp before multiplying.
func Build(card domain.RateCard, req Request, rates finance.Rates) (*Quote, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("Build: %w", ErrEmptyQuote)
	}

	items := make(map[string]domain.RateCardItem, len(card.Items))
	for _, it := range card.Items {
		items[it.ID] = it
	}

	currency := domain.ParseCurrency(string(req.Currency))
	q := &Quote{
		Client:    strings.TrimSpace(req.Client),
		Currency:  currency,
		Lines:     make([]QuoteLine, 0, len(req.Lines)),
		VATRate:   rates.VAT.InexactFloat64(),
		CreatedAt: time.Now().UTC(),
	}

	subtotal := decimal.Zero
	for i, l := range req.Lines {
		item, ok := items[l.ItemID]
		if !ok {
			return nil, fmt.Errorf("Build: line %d: %w: %q", i+1, ErrUnknownItem, l.ItemID)
		}
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := rates.Convert(item.Rate, item.Currency, currency).Round(2)
		total := unit.Mul(decimal.NewFromFloat(qty)).Round(2)
		subtotal = subtotal.Add(total)

		q.Lines = append(q.Lines, QuoteLine{
			ItemID:      item.ID,
			Platform:    item.Platform,
			Deliverable: item.Deliverable,
			UnitPrice:   unit.InexactFloat64(),
			Quantity:    qty,
			Total:       total.InexactFloat64(),
		})
	}

	vat := subtotal.Mul(rates.VAT).Round(2)
	q.Subtotal = subtotal.Round(2).InexactFloat64()
	q.VAT = vat.InexactFloat64()
	q.Total = subtotal.Add(vat).Round(2).InexactFloat64()
	return q, nil
}
