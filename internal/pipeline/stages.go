package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-planner/internal/llm"
	"travel-planner/internal/prompt"
)

const (
	StageLocation = "location"
	StageGuide    = "guide"
	StagePlanner  = "planner"
)

// promptStep renders one template, sends it to the model and stores the answer.
type promptStep struct {
	name       string
	templateID string
	requires   []string
	produces   string
	schema     *inputSchema
	prompts    Renderer
	client     llm.Client
}

func newPromptStep(name, templateID, produces string, requires []string, prompts Renderer, client llm.Client) promptStep {
	return promptStep{
		name:       name,
		templateID: templateID,
		requires:   requires,
		produces:   produces,
		schema:     mustInputSchema(name, requires),
		prompts:    prompts,
		client:     client,
	}
}

func (p *promptStep) Name() string       { return p.name }
func (p *promptStep) Requires() []string { return append([]string(nil), p.requires...) }
func (p *promptStep) Produces() string   { return p.produces }

func (p *promptStep) complete(ctx context.Context, state State, params map[string]interface{}) (State, error) {
	text, err := p.prompts.Render(p.templateID, params)
	if err != nil {
		return nil, err
	}
	answer, err := p.client.Complete(ctx, text)
	if err != nil {
		return nil, err
	}
	next, err := state.With(p.produces, answer)
	if err != nil {
		var ow *KeyOverwriteError
		if errors.As(err, &ow) {
			ow.Stage = p.name
		}
		return nil, err
	}
	return next, nil
}

// LocationStage researches logistics: accommodation, cost of living, visas,
// transport, weather and events, enriched with a live search.
type LocationStage struct {
	promptStep
	search Searcher
}

func NewLocationStage(search Searcher, prompts Renderer, client llm.Client) *LocationStage {
	return &LocationStage{
		promptStep: newPromptStep(StageLocation, prompt.TemplateLocation, KeyLocationInfo,
			[]string{KeyDestinationCity, KeyDateFrom, KeyDateTo, KeyFromCity, KeyBudget}, prompts, client),
		search: search,
	}
}

// LocationQuery is the search query for the logistics lookup.
func LocationQuery(state State) string {
	return fmt.Sprintf("travel tips %s %s to %s",
		state.String(KeyDestinationCity), state.String(KeyDateFrom), state.String(KeyDateTo))
}

func (s *LocationStage) Run(ctx context.Context, state State) (State, error) {
	if err := s.schema.check(state); err != nil {
		return nil, err
	}
	params := state.Params(KeyFromCity, KeyDestinationCity, KeyDateFrom, KeyDateTo, KeyBudget)
	params["live_info"] = s.search.Search(ctx, LocationQuery(state))
	return s.complete(ctx, state, params)
}

// GuideStage suggests attractions, food and hidden gems for the traveller's interests.
type GuideStage struct {
	promptStep
}

func NewGuideStage(prompts Renderer, client llm.Client) *GuideStage {
	return &GuideStage{
		promptStep: newPromptStep(StageGuide, prompt.TemplateGuide, KeyGuideInfo,
			[]string{KeyDestinationCity, KeyDateFrom, KeyDateTo, KeyInterests, KeyBudget}, prompts, client),
	}
}

func (s *GuideStage) Run(ctx context.Context, state State) (State, error) {
	if err := s.schema.check(state); err != nil {
		return nil, err
	}
	params := state.Params(KeyDestinationCity, KeyDateFrom, KeyDateTo, KeyInterests, KeyBudget)
	return s.complete(ctx, state, params)
}

// PlannerStage combines the location and guide research into the final itinerary.
type PlannerStage struct {
	promptStep
	search Searcher
	now    func() time.Time
}

func NewPlannerStage(search Searcher, prompts Renderer, client llm.Client) *PlannerStage {
	return &PlannerStage{
		promptStep: newPromptStep(StagePlanner, prompt.TemplatePlanner, KeyFinalItinerary,
			[]string{KeyGuideInfo, KeyLocationInfo, KeyDestinationCity, KeyBudget}, prompts, client),
		search: search,
		now:    time.Now,
	}
}

// PlannerQuery is the broader events lookup. The year comes from date_from
// when it parses, otherwise from now.
func PlannerQuery(state State, now time.Time) string {
	year := now.Year()
	if d, err := time.Parse(DateLayout, state.String(KeyDateFrom)); err == nil {
		year = d.Year()
	}
	return fmt.Sprintf("latest travel tips and events in %s %d", state.String(KeyDestinationCity), year)
}

func (s *PlannerStage) Run(ctx context.Context, state State) (State, error) {
	if err := s.schema.check(state); err != nil {
		return nil, err
	}
	params := state.Params(KeyGuideInfo, KeyLocationInfo, KeyBudget)
	params["live_info"] = s.search.Search(ctx, PlannerQuery(state, s.now()))
	return s.complete(ctx, state, params)
}
