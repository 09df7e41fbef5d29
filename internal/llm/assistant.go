package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/domain"
)

// maxHistory bounds how many previous turns are replayed to the model.
const maxHistory = 20

// Assistant answers questions about the books.
type Assistant struct {
	model Model
}

// NewAssistant creates an Assistant on top of model.
func NewAssistant(model Model) *Assistant {
	return &Assistant{model: model}
}

// Reply answers question given the conversation so far and a JSON snapshot of the books.
func (a *Assistant) Reply(ctx context.Context, history []domain.ChatMessage, snapshot, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("Reply: empty question")
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	system := assistantInstruction + "\n\nBooks snapshot:\n" + snapshot
	reply, err := a.model.Chat(ctx, system, history, question)
	if err != nil {
		return "", fmt.Errorf("Reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
