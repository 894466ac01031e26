package services

import (
	"context"
	"log"
	"time"

	"chatrouter-backend/internal/llm"
)

const fallbackFact = "Couldn't generate a fact."

type FunFactService struct {
	gateway llm.Gateway
	model   string
	persona string
	prompt  string
	timeout time.Duration
}

func NewFunFactService(gateway llm.Gateway, model, persona, prompt string, timeout time.Duration) *FunFactService {
	return &FunFactService{
		gateway: gateway,
		model:   model,
		persona: persona,
		prompt:  prompt,
		timeout: timeout,
	}
}

// Fact asks the default model for one fun fact.
func (s *FunFactService) Fact(ctx context.Context) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.gateway.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		System:      s.persona,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: s.prompt}},
		Temperature: chatTemperature,
	})
	if err != nil {
		log.Printf("Fun fact request failed: %v", err)
		return "", err
	}

	if resp == nil || resp.Content == "" {
		return fallbackFact, nil
	}
	return resp.Content, nil
}
