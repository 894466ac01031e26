package services

import (
	"context"
	"log"
	"strings"
	"time"

	"chatrouter-backend/internal/llm"
)

// Classifier asks the cheap model whether a question is simple or complex.
type Classifier struct {
	gateway llm.Gateway
	model   string
	prompt  string
	timeout time.Duration
}

func NewClassifier(gateway llm.Gateway, model, prompt string, timeout time.Duration) *Classifier {
	return &Classifier{
		gateway: gateway,
		model:   model,
		prompt:  prompt,
		timeout: timeout,
	}
}

// Classify issues exactly one gateway call and never fails: any error or
// unrecognized answer resolves to Simple.
func (c *Classifier) Classify(ctx context.Context, question string) Classification {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.gateway.Complete(ctx, llm.CompletionRequest{
		Model:       c.model,
		System:      c.prompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: question}},
		Temperature: 0,
	})
	if err != nil {
		log.Printf("Classification error: %v", &ClassifierError{Err: err})
		return Simple
	}
	if resp == nil {
		return Simple
	}

	return parseClassification(resp.Content)
}

func parseClassification(text string) Classification {
	if strings.Contains(strings.ToLower(strings.TrimSpace(text)), string(Complex)) {
		return Complex
	}
	return Simple
}
