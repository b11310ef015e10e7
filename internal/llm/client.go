// Package llm wraps the OpenAI-compatible chat completion API used for
// diagnosis calls.
package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client performs chat completion calls with JSON-object output forced, so
// the diagnosis reply can be parsed without scraping prose.
type Client struct {
	api    *openai.Client
	logger *zap.Logger
}

// Options configures a Client.
type Options struct {
	// APIKey authenticates against the API. Required.
	APIKey string

	// BaseURL points at an OpenAI-compatible endpoint. Empty means the
	// official OpenAI API.
	BaseURL string

	Logger *zap.Logger
}

// NewClient creates a Client, or nil if no API key is configured. A nil
// Client makes the missing key a validation error at diagnosis time instead
// of a construction failure, matching how the original tool behaves.
func NewClient(opts Options) *Client {
	if opts.APIKey == "" {
		return nil
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		logger: logger,
	}
}

// Complete sends a single system+user chat completion request and returns
// the raw reply content.
func (c *Client) Complete(ctx context.Context, model, system, user string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Debug("chat completion finished",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
