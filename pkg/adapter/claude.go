package adapter

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
)

// Claude is the interface for the Claude API client
type Claude interface {
	// Chat sends messages to Claude and returns the response
	Chat(ctx context.Context, messages []anthropic.MessageParam) (*anthropic.Message, error)
}

// claudeClient implements Claude interface
type claudeClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

type ClaudeOption func(*claudeClient)

func WithClaudeModel(model anthropic.Model) ClaudeOption {
	return func(c *claudeClient) {
		c.model = model
	}
}

func WithMaxTokens(n int64) ClaudeOption {
	return func(c *claudeClient) {
		c.maxTokens = n
	}
}

// NewClaude creates a new Claude API client
func NewClaude(apiKey string, opts ...ClaudeOption) Claude {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	c := &claudeClient{
		client:    &client,
		model:     anthropic.ModelClaudeSonnet4_0,
		maxTokens: 1024,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *claudeClient) Chat(ctx context.Context, messages []anthropic.MessageParam) (*anthropic.Message, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call Claude API")
	}

	return message, nil
}
