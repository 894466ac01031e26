package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chatrouter-backend/internal/llm"
	"chatrouter-backend/internal/models"
)

const (
	chatTemperature = 0.7

	// FallbackReply is returned when the upstream answered with no usable text.
	FallbackReply = "Sorry, I could not generate a response."

	emptyMessageError = "Message is empty"
)

// ConversationStore holds per-session history.
type ConversationStore interface {
	Append(ctx context.Context, sessionID string, entry models.ConversationEntry) error
	History(ctx context.Context, sessionID string) ([]models.ConversationEntry, error)
	Reset(ctx context.Context, sessionID string) error
}

type ChatOptions struct {
	DefaultPersona  string
	ClassifyEnabled bool
	Timeout         time.Duration
}

type ChatService struct {
	gateway    llm.Gateway
	classifier *Classifier
	router     *ModelRouter
	store      ConversationStore // nil disables history
	opts       ChatOptions
}

func NewChatService(gateway llm.Gateway, classifier *Classifier, router *ModelRouter, store ConversationStore, opts ChatOptions) *ChatService {
	return &ChatService{
		gateway:    gateway,
		classifier: classifier,
		router:     router,
		store:      store,
		opts:       opts,
	}
}

// Chat runs classify → route → complete for one user message and returns the reply text.
func (s *ChatService) Chat(ctx context.Context, sessionID string, req models.ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", &ValidationError{Message: emptyMessageError}
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	complexity := Simple
	if s.opts.ClassifyEnabled && s.classifier != nil {
		complexity = s.classifier.Classify(ctx, req.Message)
	}
	model := s.router.Select(complexity)

	persona := strings.TrimSpace(req.Persona)
	if persona == "" {
		persona = s.opts.DefaultPersona
	}

	var history []models.ConversationEntry
	if s.store != nil {
		var err error
		history, err = s.store.History(ctx, sessionID)
		if err != nil {
			return "", fmt.Errorf("failed to load history: %w", err)
		}
		history = dropLeadingModelTurns(history)
		if err := s.store.Append(ctx, sessionID, models.NewEntry(models.RoleUser, req.Message)); err != nil {
			return "", fmt.Errorf("failed to store user message: %w", err)
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, e := range history {
		messages = append(messages, llm.Message{Role: e.Role, Content: e.Text()})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Message})

	log.Printf("Chat session=%s classification=%s model=%s turns=%d", sessionID, complexity, model, len(messages))

	resp, err := s.gateway.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		System:      persona,
		Messages:    messages,
		Temperature: chatTemperature,
	})
	if err != nil {
		var gwErr *llm.GatewayError
		if !errors.As(err, &gwErr) {
			err = &llm.GatewayError{Provider: "upstream", Model: model, Err: err}
		}
		log.Printf("Chat completion failed: %v", err)
		return "", err
	}

	reply := ExtractReply(resp)

	if s.store != nil {
		if err := s.store.Append(ctx, sessionID, models.NewEntry(models.RoleModel, reply)); err != nil {
			return "", fmt.Errorf("failed to store reply: %w", err)
		}
	}

	return reply, nil
}

// Reset clears the session's history.
func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	if s.store == nil {
		return nil
	}
	return s.store.Reset(ctx, sessionID)
}

// dropLeadingModelTurns keeps the history starting on a user turn. A capped
// store can cut a user/model pair in half, and Gemini rejects such history.
func dropLeadingModelTurns(history []models.ConversationEntry) []models.ConversationEntry {
	for len(history) > 0 && history[0].Role == models.RoleModel {
		history = history[1:]
	}
	return history
}

// ExtractReply prefers the content field, then the text field, then a fixed fallback.
func ExtractReply(c *llm.Completion) string {
	if c == nil {
		return FallbackReply
	}
	if c.Content != "" {
		return c.Content
	}
	if c.Text != "" {
		return c.Text
	}
	return FallbackReply
}
