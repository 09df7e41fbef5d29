package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// MockModel is a Model whose behaviour is set per test.
type MockModel struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, doc *Attachment, schema *genai.Schema) (string, error)
	ChatFunc         func(ctx context.Context, system string, history []domain.ChatMessage, message string) (string, error)
}

func (m *MockModel) GenerateJSON(ctx context.Context, prompt string, doc *Attachment, schema *genai.Schema) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, doc, schema)
	}
	return "[]", nil
}

func (m *MockModel) Chat(ctx context.Context, system string, history []domain.ChatMessage, message string) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, system, history, message)
	}
	return "", nil
}

func returning(raw string) *MockModel {
	return &MockModel{
		GenerateJSONFunc: func(ctx context.Context, prompt string, doc *Attachment, schema *genai.Schema) (string, error) {
			return raw, nil
		},
	}
}

func TestParseStatement(t *testing.T) {
	raw := "```json\n[" +
		`{"date":"2024-02-01","description":"INWARD TT ACME","amount":1050,"currency":"AED","type":"credit","category":"campaign","vendor":"Acme"},` +
		`{"date":"2024-02-03","description":"ADOBE","amount":-99.5,"currency":"usd","category":"software"},` +
		`{"date":"01/02/2024","description":"bad date","amount":10,"type":"debit"},` +
		`{"date":"2024-02-04","description":"","amount":10,"type":"debit"},` +
		`{"date":"2024-02-05","description":"zero","amount":0,"type":"debit"},` +
		`"not an object"` +
		"]\n```"

	var gotDoc *Attachment
	model := returning(raw)
	inner := model.GenerateJSONFunc
	model.GenerateJSONFunc = func(ctx context.Context, prompt string, doc *Attachment, schema *genai.Schema) (string, error) {
		gotDoc = doc
		return inner(ctx, prompt, doc, schema)
	}

	res, err := NewParser(model).ParseStatement(context.Background(), Attachment{MIMEType: "application/pdf", Data: []byte("pdf")})
	require.NoError(t, err)
	require.NotNil(t, gotDoc)
	assert.Equal(t, "application/pdf", gotDoc.MIMEType)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, StatementLine{
		Date: "2024-02-01", Description: "INWARD TT ACME", Amount: 1050,
		Currency: domain.CurrencyAED, Direction: domain.DirectionCredit,
		Category: domain.CategoryCampaign, Vendor: "Acme",
	}, res.Lines[0])

	assert.Equal(t, 99.5, res.Lines[1].Amount)
	assert.Equal(t, domain.DirectionDebit, res.Lines[1].Direction)
	assert.Equal(t, domain.CurrencyUSD, res.Lines[1].Currency)
	assert.Equal(t, domain.CategorySoftware, res.Lines[1].Category)

	assert.Len(t, res.Warnings, 4)
}

func TestParseStatement_FailsClosed(t *testing.T) {
	res, err := NewParser(returning("Sorry, I cannot read this file.")).
		ParseStatement(context.Background(), Attachment{})
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "rejected")
}

func TestParseStatement_ModelError(t *testing.T) {
	model := &MockModel{
		GenerateJSONFunc: func(ctx context.Context, prompt string, doc *Attachment, schema *genai.Schema) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	_, err := NewParser(model).ParseStatement(context.Background(), Attachment{})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestParseContract(t *testing.T) {
	raw := `[{"name":"Instagram Reel","platform":"Instagram","rate":"5,000","quantity":2,"currency":"AED"},
		{"name":"Story","rate":1500},
		{"name":"Free mention","rate":-1},
		{"rate":100}]`

	res, err := NewParser(returning(raw)).ParseContract(context.Background(), Attachment{})
	require.NoError(t, err)

	require.Len(t, res.Deliverables, 2)
	assert.Equal(t, 5000.0, res.Deliverables[0].Rate)
	assert.Equal(t, 2.0, res.Deliverables[0].Quantity)
	assert.Equal(t, 1.0, res.Deliverables[1].Quantity)
	assert.Equal(t, domain.CurrencyAED, res.Deliverables[1].Currency)
	assert.Len(t, res.Warnings, 2)
}

func TestParseContact(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantName     string
		wantTRN      string
		wantWarnings int
	}{
		{
			name:     "full document",
			raw:      `{"name":"Sara Ali","company":"Acme FZ LLC","email":"sara@acme.ae","trn":"100 2345 6789 0003"}`,
			wantName: "Sara Ali",
			wantTRN:  "100234567890003",
		},
		{
			name:     "company only",
			raw:      `{"name":null,"company":"Globex","email":"not-an-email"}`,
			wantName: "Globex", wantWarnings: 1,
		},
		{
			name:         "nothing usable",
			raw:          `{"phone":"+971"}`,
			wantWarnings: 1,
		},
		{
			name:         "garbage",
			raw:          `nope`,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewParser(returning(tt.raw)).ParseContact(context.Background(), Attachment{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, res.Contact.Name)
			assert.Equal(t, tt.wantTRN, res.Contact.TRN)
			assert.Len(t, res.Warnings, tt.wantWarnings)
		})
	}
}

func TestParseRateCard(t *testing.T) {
	raw := `[{"platform":"TikTok","deliverable":"Video","rate":3000,"currency":"USD"},{"deliverable":"Story","rate":800},{"platform":"X"}]`

	res, err := NewParser(returning(raw)).ParseRateCard(context.Background(), Attachment{})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, domain.CurrencyUSD, res.Items[0].Currency)
	assert.Equal(t, "Other", res.Items[1].Platform)
	assert.Len(t, res.Warnings, 1)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[1,2]\n```", "[1,2]"},
		{"Here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"[]", "[]"},
		{"no json", "no json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanModelJSON(tt.in))
	}
}

func TestAssistant_Reply(t *testing.T) {
	history := make([]domain.ChatMessage, 30)
	var gotSystem string
	var gotHistory int
	model := &MockModel{
		ChatFunc: func(ctx context.Context, system string, h []domain.ChatMessage, message string) (string, error) {
			gotSystem = system
			gotHistory = len(h)
			return "  You billed 1,050 AED.  ", nil
		},
	}

	reply, err := NewAssistant(model).Reply(context.Background(), history, `{"income":1050}`, "How much did we bill?")
	require.NoError(t, err)
	assert.Equal(t, "You billed 1,050 AED.", reply)
	assert.Contains(t, gotSystem, `{"income":1050}`)
	assert.Equal(t, maxHistory, gotHistory)

	_, err = NewAssistant(model).Reply(context.Background(), nil, "{}", "   ")
	assert.Error(t, err)
}
