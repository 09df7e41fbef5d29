package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
)

// Parser turns uploaded documents into typed drafts. Output that fails
// validation is dropped and reported as a warning rather than guessed at.
type Parser struct {
	model Model
}

// NewParser creates a Parser on top of model.
func NewParser(model Model) *Parser {
	return &Parser{model: model}
}

// StatementLine is one validated bank statement line.
type StatementLine struct {
	Date        string
	Description string
	Amount      float64
	Currency    domain.Currency
	Direction   domain.Direction
	Category    domain.Category
	Vendor      string
}

// StatementResult holds the accepted lines and the reasons others were dropped.
type StatementResult struct {
	Lines    []StatementLine
	Warnings []string
}

// ParseStatement extracts bank lines from a statement document. Model and
// transport failures are returned as errors.
func (p *Parser) ParseStatement(ctx context.Context, doc Attachment) (*StatementResult, error) {
	raw, err := p.model.GenerateJSON(ctx, statementPrompt(), &doc, statementSchema)
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %w", err)
	}
	return transformStatement(raw), nil
}

func transformStatement(raw string) *StatementResult {
	res := &StatementResult{Lines: []StatementLine{}}

	items, err := decodeArray(raw)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("statement output rejected: %v", err))
		return res
	}

	for i, item := range items {
		line, err := transformStatementLine(item)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d skipped: %v", i+1, err))
			continue
		}
		res.Lines = append(res.Lines, line)
	}
	return res
}

func transformStatementLine(item interface{}) (StatementLine, error) {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return StatementLine{}, fmt.Errorf("element is %T, want object", item)
	}

	dateStr, err := getStringField(obj, "date", true)
	if err != nil {
		return StatementLine{}, err
	}
	if _, err := time.Parse(domain.DateLayout, dateStr); err != nil {
		return StatementLine{}, fmt.Errorf("invalid date %q", dateStr)
	}
	desc, err := getStringField(obj, "description", true)
	if err != nil {
		return StatementLine{}, err
	}
	amount, err := getFloat64Field(obj, "amount", true)
	if err != nil {
		return StatementLine{}, err
	}
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return StatementLine{}, fmt.Errorf("amount %v is not a payment", amount)
	}

	// Without an explicit direction the sign decides.
	dir := domain.DirectionDebit
	if typ := getOptionalStringField(obj, "type"); typ != "" {
		dir = domain.ParseDirection(typ)
	} else if amount > 0 {
		dir = domain.DirectionCredit
	}

	return StatementLine{
		Date:        dateStr,
		Description: desc,
		Amount:      math.Abs(amount),
		Currency:    domain.ParseCurrency(getOptionalStringField(obj, "currency")),
		Direction:   dir,
		Category:    domain.NormalizeCategory(getOptionalStringField(obj, "category")),
		Vendor:      getOptionalStringField(obj, "vendor"),
	}, nil
}

// DeliverableResult holds deliverable drafts read from a contract.
type DeliverableResult struct {
	Deliverables []domain.Deliverable `json:"deliverables"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// ParseContract extracts priced deliverables. Ids are left for the caller.
func (p *Parser) ParseContract(ctx context.Context, doc Attachment) (*DeliverableResult, error) {
	raw, err := p.model.GenerateJSON(ctx, contractPrompt(), &doc, contractSchema)
	if err != nil {
		return nil, fmt.Errorf("ParseContract: %w", err)
	}
	return transformDeliverables(raw), nil
}

func transformDeliverables(raw string) *DeliverableResult {
	res := &DeliverableResult{Deliverables: []domain.Deliverable{}}

	items, err := decodeArray(raw)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("contract output rejected: %v", err))
		return res
	}

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("deliverable %d skipped: element is %T", i+1, item))
			continue
		}
		name, err := getStringField(obj, "name", true)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("deliverable %d skipped: %v", i+1, err))
			continue
		}
		rate, err := getFloat64Field(obj, "rate", true)
		if err != nil || rate < 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("deliverable %d skipped: invalid rate", i+1))
			continue
		}
		qty, err := getOptionalFloat64Field(obj, "quantity")
		quantity := 1.0
		if err == nil && qty != nil && *qty > 0 {
			quantity = *qty
		}

		res.Deliverables = append(res.Deliverables, domain.Deliverable{
			Name:     name,
			Platform: getOptionalStringField(obj, "platform"),
			Rate:     rate,
			Quantity: quantity,
			Currency: domain.ParseCurrency(getOptionalStringField(obj, "currency")),
		})
	}
	return res
}

// ContactResult is a contact draft read from a company document.
type ContactResult struct {
	Contact  domain.Contact `json:"contact"`
	Warnings []string       `json:"warnings,omitempty"`
}

// ParseContact extracts CRM fields from a company document.
func (p *Parser) ParseContact(ctx context.Context, doc Attachment) (*ContactResult, error) {
	raw, err := p.model.GenerateJSON(ctx, contactPrompt(), &doc, contactSchema)
	if err != nil {
		return nil, fmt.Errorf("ParseContact: %w", err)
	}
	return transformContact(raw), nil
}

func transformContact(raw string) *ContactResult {
	res := &ContactResult{}

	obj, err := decodeObject(raw)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("contact output rejected: %v", err))
		return res
	}

	c := domain.Contact{
		Name:    getOptionalStringField(obj, "name"),
		Company: getOptionalStringField(obj, "company"),
		Email:   getOptionalStringField(obj, "email"),
		Phone:   getOptionalStringField(obj, "phone"),
		Address: getOptionalStringField(obj, "address"),
		TRN:     strings.ReplaceAll(getOptionalStringField(obj, "trn"), " ", ""),
		Status:  domain.ContactNew,
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		res.Warnings = append(res.Warnings, fmt.Sprintf("email %q dropped", c.Email))
		c.Email = ""
	}
	if c.Name == "" {
		c.Name = c.Company
	}
	if c.Name == "" {
		res.Warnings = append(res.Warnings, "no contact or company name found")
		return res
	}
	res.Contact = c
	return res
}

// RateCardResult holds rate card items read from a document.
type RateCardResult struct {
	Items    []domain.RateCardItem `json:"items"`
	Warnings []string              `json:"warnings,omitempty"`
}

// ParseRateCard extracts priced items. Ids are left for the caller.
func (p *Parser) ParseRateCard(ctx context.Context, doc Attachment) (*RateCardResult, error) {
	raw, err := p.model.GenerateJSON(ctx, rateCardPrompt(), &doc, rateCardSchema)
	if err != nil {
		return nil, fmt.Errorf("ParseRateCard: %w", err)
	}
	return transformRateCard(raw), nil
}

func transformRateCard(raw string) *RateCardResult {
	res := &RateCardResult{Items: []domain.RateCardItem{}}

	items, err := decodeArray(raw)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("rate card output rejected: %v", err))
		return res
	}

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("item %d skipped: element is %T", i+1, item))
			continue
		}
		deliverable, err := getStringField(obj, "deliverable", true)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("item %d skipped: %v", i+1, err))
			continue
		}
		rate, err := getFloat64Field(obj, "rate", true)
		if err != nil || rate < 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("item %d skipped: invalid rate", i+1))
			continue
		}
		platform := getOptionalStringField(obj, "platform")
		if platform == "" {
			platform = "Other"
		}
		res.Items = append(res.Items, domain.RateCardItem{
			Platform:    platform,
			Deliverable: deliverable,
			Rate:        rate,
			Currency:    domain.ParseCurrency(getOptionalStringField(obj, "currency")),
			Notes:       getOptionalStringField(obj, "notes"),
		})
	}
	return res
}
