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
	anthropicBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

var (
	_ papertrail.Completer = (*Client)(nil)
	_ papertrail.Completer = (*AnthropicClient)(nil)
)

// messagesRequest is the Anthropic Messages API request body.
type messagesRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *upstream.Client
	limiter *ratelimit.Limiter // nil = unlimited
}

// NewAnthropic creates an AnthropicClient. If baseURL is empty, it defaults
// to "https://api.anthropic.com/v1".
func NewAnthropic(baseURL, apiKey, model string, client *upstream.Client, limiter *ratelimit.Limiter) *AnthropicClient {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	if client == nil {
		client = upstream.NewClient(serviceName, nil, 0, nil)
	}
	return &AnthropicClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    client,
		limiter: limiter,
	}
}

// Model returns the configured model.
func (c *AnthropicClient) Model() string { return c.model }

// Prompt sends a system + user message pair and returns the concatenated
// text blocks of the reply.
func (c *AnthropicClient) Prompt(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(&messagesRequest{
		Model:     c.model,
		System:    system,
		Messages:  []Message{{Role: "user", Content: user}},
		MaxTokens: anthropicMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("anthropic: rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	c.setHeaders(req)

	data, err := c.http.Do(req, "messages")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range gjson.GetBytes(data, "content").Array() {
		if block.Get("type").String() == "text" {
			sb.WriteString(block.Get("text").String())
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w: empty completion", papertrail.ErrUpstream)
	}
	return sb.String(), nil
}

// HealthCheck verifies connectivity by listing models.
func (c *AnthropicClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("anthropic: create request: %w", err)
	}
	c.setHeaders(req)
	_, err = c.http.Do(req, "models")
	return err
}

func (c *AnthropicClient) setHeaders(r *http.Request) {
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("anthropic-version", anthropicVersion)
	if c.apiKey != "" {
		r.Header.Set("x-api-key", c.apiKey)
	}
}
