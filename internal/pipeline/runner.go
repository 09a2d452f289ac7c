package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "travel-planner/internal/common/errors"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/common/metrics"
	"travel-planner/internal/llm"
)

// Observer is notified around every stage. StageStarted may return a derived
// context that is passed to the stage and to StageFinished.
type Observer interface {
	StageStarted(ctx context.Context, stage string) context.Context
	StageFinished(ctx context.Context, stage string, elapsed time.Duration, err error)
}

// RunRecorder counts finished runs by status.
type RunRecorder interface {
	RecordRun(ctx context.Context, status string)
}

type noopObserver struct{}

func (noopObserver) StageStarted(ctx context.Context, _ string) context.Context { return ctx }
func (noopObserver) StageFinished(context.Context, string, time.Duration, error) {}

type noopRecorder struct{}

func (noopRecorder) RecordRun(context.Context, string) {}

type RunnerOption func(*Runner)

func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

func WithRunRecorder(rec RunRecorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// Runner executes stages strictly in order, feeding each stage the previous output.
type Runner struct {
	stages   []Stage
	schemas  []*inputSchema
	logger   logger.Logger
	observer Observer
	recorder RunRecorder
}

func NewRunner(stages []Stage, opts ...RunnerOption) (*Runner, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline: at least one stage is required")
	}

	r := &Runner{
		stages:   append([]Stage(nil), stages...),
		logger:   logger.NewNoOpLogger(),
		observer: noopObserver{},
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.schemas = make([]*inputSchema, len(stages))
	for i, st := range stages {
		s, err := newInputSchema(st.Name(), st.Requires())
		if err != nil {
			return nil, err
		}
		r.schemas[i] = s
	}
	return r, nil
}

// NewTravelRunner builds the Location, Guide, Planner pipeline and checks
// that every stage input is seeded by a TripRequest or produced upstream.
func NewTravelRunner(search Searcher, prompts Renderer, client llm.Client, opts ...RunnerOption) (*Runner, error) {
	stages := []Stage{
		NewLocationStage(search, prompts, client),
		NewGuideStage(prompts, client),
		NewPlannerStage(search, prompts, client),
	}
	if err := CheckWiring(stages, SeedKeys); err != nil {
		return nil, err
	}
	return NewRunner(stages, opts...)
}

// Stages returns the stage names in execution order.
func (r *Runner) Stages() []string {
	names := make([]string, len(r.stages))
	for i, st := range r.stages {
		names[i] = st.Name()
	}
	return names
}

// Run executes every stage against a copy of initial. The first failure
// aborts the run and no partial state is returned.
func (r *Runner) Run(ctx context.Context, initial State) (State, error) {
	runID := uuid.NewString()
	log := r.logger.With(map[string]interface{}{"runId": runID})
	start := time.Now()

	log.Info("pipeline run started", map[string]interface{}{
		"stages": r.Stages(),
	})

	state := initial.Clone()
	for i, st := range r.stages {
		name := st.Name()

		if err := r.schemas[i].check(state); err != nil {
			return nil, r.fail(ctx, log, name, err)
		}

		stageCtx := r.observer.StageStarted(ctx, name)
		stageStart := time.Now()
		next, err := st.Run(stageCtx, state)
		if err == nil {
			err = checkMonotonic(name, state, next)
		}
		elapsed := time.Since(stageStart)
		r.observer.StageFinished(stageCtx, name, elapsed, err)
		metrics.PipelineStageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

		if err != nil {
			return nil, r.fail(ctx, log, name, err)
		}

		log.Debug("stage completed", map[string]interface{}{
			"stage":       name,
			"produced":    st.Produces(),
			"duration_ms": elapsed.Milliseconds(),
		})
		state = next
	}

	metrics.PipelineRuns.WithLabelValues("success").Inc()
	r.recorder.RecordRun(ctx, "success")
	log.Info("pipeline run completed", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return state, nil
}

func (r *Runner) fail(ctx context.Context, log logger.Logger, stage string, err error) error {
	code := apperrors.AsStandardError(err).Code
	metrics.PipelineStageFailures.WithLabelValues(stage, string(code)).Inc()
	metrics.PipelineRuns.WithLabelValues("failed").Inc()
	r.recorder.RecordRun(ctx, "failed")

	log.Error("pipeline run aborted", map[string]interface{}{
		"stage":     stage,
		"errorCode": string(code),
		"error":     err,
	})
	return fmt.Errorf("stage %s: %w", stage, err)
}

// CheckWiring verifies that every key a stage requires is either seeded or
// produced by an earlier stage, and that no stage produces a key that already exists.
func CheckWiring(stages []Stage, seedKeys []string) error {
	available := make(map[string]string, len(seedKeys)+len(stages))
	for _, k := range seedKeys {
		available[k] = "seed"
	}
	for _, st := range stages {
		for _, k := range st.Requires() {
			if _, ok := available[k]; !ok {
				return fmt.Errorf("%w: stage %s requires %q", ErrUnwired, st.Name(), k)
			}
		}
		if by, ok := available[st.Produces()]; ok {
			return fmt.Errorf("%w: stage %s produces %q, already provided by %s", ErrKeyOverwrite, st.Name(), st.Produces(), by)
		}
		available[st.Produces()] = st.Name()
	}
	return nil
}
