// Package llm sends rendered prompts to a remote completion service and
// returns only the generated text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"travel-planner/internal/common/config"
	apperrors "travel-planner/internal/common/errors"
)

// Client completes a single prompt. Implementations are safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrLanguageModel matches every failure returned by a Client built in this package.
var ErrLanguageModel = errors.New("language model failure")

// Error describes a failed completion.
type Error struct {
	Provider string
	Model    string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrLanguageModel }

// Timeout reports whether the call failed on a deadline.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

func (e *Error) ToStandardError() *apperrors.StandardError {
	if e.Timeout() {
		return apperrors.NewLLMTimeoutError(e.Provider, e.Err)
	}
	return apperrors.NewLLMGenerationFailedError(e.Provider, e.Err)
}

// Config is the explicit model configuration, validated once at startup.
type Config struct {
	Provider    string
	Model       string
	Temperature float64
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
}

// ConfigFrom maps the application config section onto Config.
func ConfigFrom(c config.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		Temperature: c.Temperature,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.LLMTimeout(),
	}
}

func (c Config) Validate() error {
	switch c.Provider {
	case config.ProviderGroq, config.ProviderGemini:
	default:
		return fmt.Errorf("llm: unsupported provider %q", c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("llm: api key for provider %q is not set", c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("llm: model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm: temperature %.2f outside [0, 2]", c.Temperature)
	}
	return nil
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// New validates cfg and builds the configured backend wrapped with metrics and logging.
func New(ctx context.Context, cfg Config, log Logger) (*Instrumented, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigInvalidError(err)
	}

	var backend Client
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, err
		}
		backend = g
	default:
		backend = NewGroq(cfg)
	}
	return NewInstrumented(backend, cfg.Provider, log), nil
}
