// Package app assembles the itinerary planner from configuration. The HTTP
// API, the CLI and the job worker all build their planner here.
package app

import (
	"context"
	"fmt"
	"io"

	"travel-planner/internal/common/config"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/common/observability"
	"travel-planner/internal/llm"
	"travel-planner/internal/pipeline"
	"travel-planner/internal/prompt"
	"travel-planner/internal/search"
)

type Option func(*options)

type options struct {
	client llm.Client
	obs    *observability.Observability
}

// WithLanguageModel replaces the configured provider, e.g. with llm.Echo for dry runs.
func WithLanguageModel(c llm.Client) Option {
	return func(o *options) { o.client = c }
}

// WithObservability routes stage spans and run counters to obs.
func WithObservability(obs *observability.Observability) Option {
	return func(o *options) { o.obs = obs }
}

// Planner is the wired pipeline plus the resources it owns.
type Planner struct {
	*pipeline.Planner
	Runner *pipeline.Runner
	client llm.Client
}

func NewPlanner(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Planner, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	searchProvider, err := search.NewFromConfig(cfg.Search, log.With(map[string]interface{}{"component": "search"}))
	if err != nil {
		return nil, err
	}

	renderer, err := prompt.NewRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.Prompts.Dir != "" {
		if err := renderer.LoadDir(cfg.Prompts.Dir); err != nil {
			return nil, fmt.Errorf("load prompt templates from %s: %w", cfg.Prompts.Dir, err)
		}
	}

	client := o.client
	if client == nil {
		client, err = llm.New(ctx, llm.ConfigFrom(cfg.LLM), log.With(map[string]interface{}{"component": "llm"}))
		if err != nil {
			return nil, err
		}
	}

	runnerOpts := []pipeline.RunnerOption{
		pipeline.WithLogger(log.With(map[string]interface{}{"component": "pipeline"})),
	}
	if o.obs != nil {
		runnerOpts = append(runnerOpts, pipeline.WithObserver(o.obs), pipeline.WithRunRecorder(o.obs))
	}

	runner, err := pipeline.NewTravelRunner(searchProvider, renderer, client, runnerOpts...)
	if err != nil {
		return nil, err
	}

	log.Info("planner ready", map[string]interface{}{
		"llmProvider":   cfg.LLM.Provider,
		"llmModel":      cfg.LLM.Model,
		"searchBackend": cfg.Search.Backend,
		"templates":     renderer.IDs(),
	})

	return &Planner{Planner: pipeline.NewPlanner(runner), Runner: runner, client: client}, nil
}

// Close releases the language model client when it holds connections.
func (p *Planner) Close() error {
	if c, ok := p.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
