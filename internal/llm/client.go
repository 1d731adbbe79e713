// Package llm implements a client for OpenAI-compatible chat completion APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/ratelimit"
	"github.com/eugener/papertrail/internal/upstream"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	serviceName    = "llm"
)

// ChatRequest is an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is an OpenAI-compatible chat completion response.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text returns the content of the first choice, or "" if there is none.
func (r *ChatResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *upstream.Client
	limiter *ratelimit.Limiter // nil = unlimited
}

// New creates a Client. If baseURL is empty, it defaults to
// "https://api.openai.com/v1". model is used when a request leaves Model empty.
func New(baseURL, apiKey, model string, client *upstream.Client, limiter *ratelimit.Limiter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = upstream.NewClient(serviceName, nil, 0, nil)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    client,
		limiter: limiter,
	}
}

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// Complete sends a non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("llm: %w: no messages", papertrail.ErrBadRequest)
	}
	out := *req
	if out.Model == "" {
		out.Model = c.model
	}

	body, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	c.setHeaders(httpReq)

	data, err := c.http.Do(httpReq, "chat")
	if err != nil {
		return nil, err
	}

	var resp ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	return &resp, nil
}

// Prompt sends a system + user message pair and returns the reply text.
func (c *Client) Prompt(ctx context.Context, system, user string) (string, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})

	resp, err := c.Complete(ctx, &ChatRequest{Messages: msgs})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("llm: %w: empty completion", papertrail.ErrUpstream)
	}
	return text, nil
}

// ListModels returns the IDs of the models the API serves.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	c.setHeaders(httpReq)

	data, err := c.http.Do(httpReq, "models")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range gjson.GetBytes(data, "data.#.id").Array() {
		ids = append(ids, id.String())
	}
	return ids, nil
}

// HealthCheck verifies connectivity.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("llm: rate limit wait: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
