package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"travel-planner/internal/common/config"
)

// OpenAICompatible talks to any OpenAI-style chat completions endpoint; Groq is the default.
type OpenAICompatible struct {
	client      openai.Client
	provider    string
	model       string
	temperature float64
}

// NewGroq builds a client for Groq's OpenAI-compatible API. Extra request
// options are appended after the configured ones.
func NewGroq(cfg Config, opts ...option.RequestOption) *OpenAICompatible {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultGroqBaseURL
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAICompatible{
		client:      openai.NewClient(reqOpts...),
		provider:    config.ProviderGroq,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (c *OpenAICompatible) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", &Error{Provider: c.provider, Model: c.model, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Provider: c.provider, Model: c.model, Err: errors.New("response contained no choices")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
