// Package openai wraps the official SDK behind a narrow boundary: core
// code is responsible for the retrieval contract only (what context to
// hand an LLM), not for answer generation itself. Nothing in pkg/search
// or pkg/ingest calls Client.Complete; it exists so pkg/contextbuilder
// has somewhere real to hand its payload off to.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/qanoon/halp/pkg/config"
)

type Message struct {
	Role    string
	Content string
}

type Client struct {
	inner openai.Client
	model string
}

func NewClient(cfg config.ServiceConfig) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{inner: openai.NewClient(opts...), model: cfg.Model}
}

// Complete sends a fixed message set and returns the first choice's text.
// It does not implement any retry/streaming/tool-use policy: that belongs
// to whatever answer-generation layer sits above the retrieval contract,
// which is out of scope here.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	params := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		switch m.Role {
		case "system":
			params[i] = openai.SystemMessage(m.Content)
		default:
			params[i] = openai.UserMessage(m.Content)
		}
	}

	resp, err := c.inner.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: params,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
