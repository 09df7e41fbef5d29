package books

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/logger"
)

// ChatHistory returns the stored conversation.
func (s *Service) ChatHistory(ctx context.Context) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.chat.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ChatHistory: %w", err)
	}
	if history == nil {
		history = []domain.ChatMessage{}
	}
	return history, nil
}

// Ask sends question to the assistant along with the history and a summary
// of the books. Both turns are stored only when the model answers.
func (s *Service) Ask(ctx context.Context, question string) (*domain.ChatMessage, error) {
	if s.assistant == nil {
		return nil, fmt.Errorf("Ask: assistant: %w", ErrUnavailable)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, invalid("Ask", "question is empty")
	}

	history, err := s.ChatHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("Ask: %w", err)
	}
	snapshot, err := s.snapshotJSON(ctx)
	if err != nil {
		return nil, fmt.Errorf("Ask: %w", err)
	}

	asked := s.now()
	answer, err := s.assistant.Reply(ctx, history, snapshot, question)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Assistant reply failed")
		return nil, fmt.Errorf("Ask: %w", err)
	}
	reply := domain.ChatMessage{Role: domain.RoleModel, Text: answer, At: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.chat.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("Ask: %w", err)
	}
	current = append(current,
		domain.ChatMessage{Role: domain.RoleUser, Text: question, At: asked},
		reply,
	)
	if err := s.chat.Save(ctx, current); err != nil {
		return nil, fmt.Errorf("Ask: %w", err)
	}
	return &reply, nil
}

// ClearChat empties the conversation.
func (s *Service) ClearChat(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.chat.Save(ctx, []domain.ChatMessage{}); err != nil {
		return fmt.Errorf("ClearChat: %w", err)
	}
	return nil
}
