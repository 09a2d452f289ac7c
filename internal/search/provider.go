// Package search performs the live web lookups that enrich the location and
// planner prompts. Lookups are best effort: a failing backend degrades to a
// sentinel string and never fails the pipeline.
package search

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	apperrors "travel-planner/internal/common/errors"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/common/metrics"
)

const DefaultMaxResults = 3

// Backend performs the raw lookup against one search service.
type Backend interface {
	Name() string
	Lookup(ctx context.Context, query string, maxResults int) (Result, error)
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Provider turns a Backend into the string-valued lookup the stages use.
type Provider struct {
	backend    Backend
	maxResults int
	logger     Logger
}

func NewProvider(backend Backend, maxResults int, log Logger) *Provider {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Provider{
		backend:    backend,
		maxResults: maxResults,
		logger:     log,
	}
}

// Search returns the normalized result for query, or NoResultsSentinel on any failure.
func (p *Provider) Search(ctx context.Context, query string) string {
	start := time.Now()
	result, err := p.backend.Lookup(ctx, query, p.maxResults)
	if err != nil {
		stdErr := apperrors.NewWebSearchFailedError(p.backend.Name(), err)
		if isTimeout(ctx, err) {
			stdErr = apperrors.NewWebSearchTimeoutError(p.backend.Name())
		}
		p.logger.Warn("web search failed, using fallback", map[string]interface{}{
			"backend":   p.backend.Name(),
			"query":     query,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		metrics.SearchFallbacks.WithLabelValues(p.backend.Name()).Inc()
		return NoResultsSentinel
	}

	p.logger.Debug("web search completed", map[string]interface{}{
		"backend":     p.backend.Name(),
		"query":       query,
		"kind":        result.Kind.String(),
		"resultCount": len(result.Links),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return Normalize(result)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}
