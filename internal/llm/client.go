// Package llm wraps Gemini for document parsing and the assistant chat.
package llm

import (
	"context"
	"fmt"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Attachment is a document sent alongside a prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Model is the subset of Gemini the parsers rely on.
type Model interface {
	// GenerateJSON returns the raw JSON text produced for prompt and the optional document.
	GenerateJSON(ctx context.Context, prompt string, doc *Attachment, schema *genai.Schema) (string, error)

	// Chat continues a conversation and returns the model's reply.
	Chat(ctx context.Context, system string, history []domain.ChatMessage, message string) (string, error)
}

// Gemini implements Model with the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a client. An empty apiKey lets the SDK read GOOGLE_API_KEY.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	cfg := &genai.ClientConfig{}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{client: client, model: model}, nil
}

// GenerateJSON implements Model.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, doc *Attachment, schema *genai.Schema) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	if doc != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: doc.MIMEType,
				Data:     doc.Data,
			},
		})
	}
	contents := []*genai.Content{{Role: domain.RoleUser, Parts: parts}}

	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("GenerateJSON: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("GenerateJSON: empty response from model")
	}
	return rawText, nil
}

// Chat implements Model.
func (g *Gemini) Chat(ctx context.Context, system string, history []domain.ChatMessage, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := domain.RoleUser
		if m.Role == domain.RoleModel {
			role = domain.RoleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Text}}})
	}
	contents = append(contents, &genai.Content{Role: domain.RoleUser, Parts: []*genai.Part{{Text: message}}})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Chat: generate content: %w", err)
	}

	reply := resp.Text()
	if reply == "" {
		return "", fmt.Errorf("Chat: empty response from model")
	}
	return reply, nil
}

var _ Model = (*Gemini)(nil)
