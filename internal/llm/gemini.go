package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"travel-planner/internal/common/config"
)

// Gemini completes prompts with Google's Gemini models.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
}

func NewGemini(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Gemini, error) {
	clientOpts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))

	return &Gemini{
		client:  client,
		model:   model,
		name:    cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &Error{Provider: config.ProviderGemini, Model: g.name, Err: err}
	}
	text, err := responseText(resp)
	if err != nil {
		return "", &Error{Provider: config.ProviderGemini, Model: g.name, Err: err}
	}
	return text, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response candidates from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("gemini response contained no text parts")
	}
	return strings.TrimSpace(b.String()), nil
}
