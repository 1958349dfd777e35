// Package llm wraps the OpenAI-compatible chat completion client.
package llm

import (
	"context"

	"github.com/comigor/echoal-go/internal/config"
	"github.com/sashabaranov/go-openai"
)

// Client is the subset of openai.Client used by the responder; it is easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ Client = (*openai.Client)(nil)

// NewClient creates a new OpenAI client. Any OpenAI-compatible endpoint works
// through BaseURL.
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return openai.NewClientWithConfig(config)
}
