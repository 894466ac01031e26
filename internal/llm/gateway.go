package llm

//go:generate mockgen -destination=./mocks/gateway_mock.go -package=mocks -source=gateway.go Gateway

import (
	"context"
	"fmt"
)

// Roles used in conversation turns. Providers translate them to their own vocabulary.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Gateway is the contract for a remote chat-completion service.
type Gateway interface {
	// Complete sends one completion request and returns the generated text.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-neutral request shape.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float32
}

// Completion carries the text fields a provider may fill. Content is the primary
// field; Text is the legacy completion field some OpenAI-compatible APIs return.
type Completion struct {
	Content string
	Text    string
}

// GatewayError is returned for any failed upstream call: transport errors,
// non-2xx statuses and malformed bodies.
type GatewayError struct {
	Provider   string
	Model      string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s gateway error (model=%s, status=%d): %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s gateway error (model=%s): %v", e.Provider, e.Model, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// limitedGateway caps the number of in-flight upstream calls.
type limitedGateway struct {
	next     Gateway
	rateChan chan struct{} // Token bucket
}

// Limit wraps a gateway so that at most n calls run concurrently. n <= 0 disables the cap.
func Limit(next Gateway, n int) Gateway {
	if n <= 0 {
		return next
	}

	rateChan := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		rateChan <- struct{}{}
	}

	return &limitedGateway{next: next, rateChan: rateChan}
}

func (g *limitedGateway) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if err := g.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer g.releaseRate()

	return g.next.Complete(ctx, req)
}

// acquireRate blocks until a rate slot is available
func (g *limitedGateway) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for upstream slot: %w", ctx.Err())
	}
}

func (g *limitedGateway) releaseRate() {
	g.rateChan <- struct{}{}
}
