// Package llm is a thin client for OpenAI-compatible chat completion APIs.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is used when neither the request nor the config names one.
const DefaultBaseURL = "https://api.openai.com/v1"

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single non-streaming completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completer returns one text completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client calls the /chat/completions endpoint of an OpenAI-compatible API.
type Client struct {
	client   *resty.Client
	endpoint string
}

// Config holds the credentials and endpoint for a Client.
type Config struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a chat completion client.
// Parameters:
//   - cfg: API key and base URL; an empty base URL falls back to DefaultBaseURL.
//
// Returns:
//   - *Client: initialized client with no request timeout.
func NewClient(cfg Config) *Client {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Generation may take arbitrarily long; only attempt budgets bound it.
	client.SetTimeout(0)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		client:   client,
		endpoint: baseURL + "/chat/completions",
	}
}

// Endpoint returns the full completion URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the messages and returns the first choice's content. An
// empty choice list yields an empty string, which callers validate.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call chat completions API: %w", err)
	}

	if httpResp.IsError() {
		if resp.Error != nil && resp.Error.Message != "" {
			return "", fmt.Errorf("chat completions API returned HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("chat completions API returned HTTP %d: %s", httpResp.StatusCode(), truncate(string(httpResp.Body()), 500))
	}
	if resp.Error != nil {
		return "", fmt.Errorf("chat completions API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// MaskKey keeps the first six characters of a credential for log lines.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	r := []rune(key)
	if len(r) <= 6 {
		return "******"
	}
	return string(r[:6]) + "******"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
