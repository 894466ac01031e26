package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const providerGroq = "groq"

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// GroqClient talks to an OpenAI-compatible chat-completions endpoint.
type GroqClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGroqClient(apiKey, baseURL string) *GroqClient {
	return &GroqClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete posts to {baseURL}/chat/completions with bearer auth.
func (c *GroqClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == RoleModel {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: m.Content})
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, c.fail(req.Model, 0, fmt.Errorf("failed to marshal request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(req.Model, 0, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, c.fail(req.Model, 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(req.Model, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(req.Model, resp.StatusCode, fmt.Errorf("upstream rejected request: %s", truncate(string(raw), 512)))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, c.fail(req.Model, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, c.fail(req.Model, resp.StatusCode, fmt.Errorf("response has no choices"))
	}

	first := parsed.Choices[0]
	out := &Completion{Text: first.Text}
	if first.Message != nil {
		out.Content = first.Message.Content
	}
	return out, nil
}

func (c *GroqClient) fail(model string, status int, err error) error {
	return &GatewayError{Provider: providerGroq, Model: model, StatusCode: status, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
