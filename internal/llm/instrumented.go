package llm

import (
	"context"
	"io"
	"time"

	"travel-planner/internal/common/metrics"
)

// Instrumented records latency and outcome for every completion of the wrapped Client.
type Instrumented struct {
	next     Client
	provider string
	logger   Logger
}

func NewInstrumented(next Client, provider string, log Logger) *Instrumented {
	return &Instrumented{next: next, provider: provider, logger: log}
}

func (c *Instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.next.Complete(ctx, prompt)
	elapsed := time.Since(start)

	metrics.LLMRequestDuration.WithLabelValues(c.provider).Observe(elapsed.Seconds())
	if err != nil {
		metrics.LLMRequests.WithLabelValues(c.provider, "error").Inc()
		c.logger.Error("language model call failed", map[string]interface{}{
			"provider":    c.provider,
			"promptChars": len(prompt),
			"duration_ms": elapsed.Milliseconds(),
			"error":       err,
		})
		return "", err
	}

	metrics.LLMRequests.WithLabelValues(c.provider, "success").Inc()
	c.logger.Debug("language model call completed", map[string]interface{}{
		"provider":      c.provider,
		"promptChars":   len(prompt),
		"responseChars": len(text),
		"duration_ms":   elapsed.Milliseconds(),
	})
	return text, nil
}

// Close releases the wrapped client when it holds a connection.
func (c *Instrumented) Close() error {
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Echo returns the prompt unchanged. It backs offline dry runs, where the
// final document shows every assembled prompt instead of model output.
type Echo struct{}

func (Echo) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Provider: "echo", Model: "echo", Err: err}
	}
	return prompt, nil
}
