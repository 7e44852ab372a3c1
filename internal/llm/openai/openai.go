// Package openai implements the Completer interface against an
// OpenAI-compatible chat-completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"trading-agent/internal/trace"
	"trading-agent/internal/types"
)

const defaultEndpoint = "https://api.openai.com/v1"

// Config selects the model and endpoint. The API key is read from the
// OPENAI_API_KEY environment variable at call time, never stored in the
// config file.
type Config struct {
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	http *resty.Client
	cfg  Config
}

func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(cfg.Endpoint)
	client.SetTimeout(cfg.Timeout)
	return &Client{http: client, cfg: cfg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the structured request with a JSON response contract.
// Transport and HTTP errors come back wrapped in
// types.ErrTransientUnavailable so the cycle classifies them correctly.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error) {
	ctx, span := trace.StartSpan(ctx, "openai-completion")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return types.CompletionResult{}, errors.New("OPENAI_API_KEY missing")
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return types.CompletionResult{}, fmt.Errorf("completion transport: %v: %w", err, types.ErrTransientUnavailable)
	}
	if resp.IsError() {
		detail := resp.Status()
		if out.Error != nil {
			detail = out.Error.Message
		}
		return types.CompletionResult{}, fmt.Errorf("completion http %d: %s: %w", resp.StatusCode(), detail, types.ErrTransientUnavailable)
	}
	if len(out.Choices) == 0 {
		return types.CompletionResult{}, fmt.Errorf("completion returned no choices: %w", types.ErrTransientUnavailable)
	}

	return types.CompletionResult{
		Content:          strings.TrimSpace(out.Choices[0].Message.Content),
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}, nil
}
