package pipeline

import (
	"context"
	"fmt"
)

// Planner validates a TripRequest, runs the pipeline on a fresh state and
// extracts the itinerary. It is shared by the HTTP API, the CLI and the worker.
type Planner struct {
	runner *Runner
}

func NewPlanner(runner *Runner) *Planner {
	return &Planner{runner: runner}
}

func (p *Planner) Plan(ctx context.Context, req TripRequest) (*Itinerary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	final, err := p.runner.Run(ctx, req.State())
	if err != nil {
		return nil, err
	}

	markdown, ok := final[KeyFinalItinerary].(string)
	if !ok {
		return nil, fmt.Errorf("%w: state key %q holds %T", ErrNoItinerary, KeyFinalItinerary, final[KeyFinalItinerary])
	}

	return &Itinerary{
		Markdown:     markdown,
		Filename:     req.Filename(),
		LocationInfo: final.String(KeyLocationInfo),
		GuideInfo:    final.String(KeyGuideInfo),
	}, nil
}
