package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "travel-planner/internal/common/errors"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/llm"
	"travel-planner/internal/prompt"
)

// stubSearch returns a fixed string and records every query.
type stubSearch struct {
	mu      sync.Mutex
	result  string
	queries []string
}

func (s *stubSearch) Search(_ context.Context, query string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.result
}

// echoModel answers "<template id> response", reading the id from the first prompt line.
type echoModel struct {
	mu      sync.Mutex
	prompts []string
	failOn  string
}

func (m *echoModel) Complete(_ context.Context, p string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, p)
	id := strings.SplitN(p, "\n", 2)[0]
	if id == m.failOn {
		return "", &llm.Error{Provider: "stub", Model: "stub", Err: errors.New("backend unavailable")}
	}
	return id + " response", nil
}

func (m *echoModel) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	for i, p := range m.prompts {
		out[i] = strings.SplitN(p, "\n", 2)[0]
	}
	return out
}

func stubRenderer(t *testing.T) *prompt.Renderer {
	t.Helper()
	r, err := prompt.NewRenderer()
	require.NoError(t, err)
	require.NoError(t, r.WithTemplate(prompt.TemplateLocation,
		"location\n{{.from_city}} {{.destination_city}} {{.date_from}} {{.date_to}} {{.budget}} {{.live_info}}"))
	require.NoError(t, r.WithTemplate(prompt.TemplateGuide,
		"guide\n{{.destination_city}} {{.date_from}} {{.date_to}} {{.interests}} {{.budget}}"))
	require.NoError(t, r.WithTemplate(prompt.TemplatePlanner,
		"planner\n{{.location_info}} | {{.guide_info}} | {{.live_info}} | {{.budget}}"))
	return r
}

func sampleRequest() TripRequest {
	return TripRequest{
		FromCity:        "Delhi",
		DestinationCity: "Singapore",
		DateFrom:        "2025-03-01",
		DateTo:          "2025-03-05",
		Interests:       "food, adventure, markets",
		Budget:          30000,
	}
}

type orderObserver struct {
	started  []string
	finished []string
	errs     []error
}

func (o *orderObserver) StageStarted(ctx context.Context, stage string) context.Context {
	o.started = append(o.started, stage)
	return ctx
}

func (o *orderObserver) StageFinished(_ context.Context, stage string, _ time.Duration, err error) {
	o.finished = append(o.finished, stage)
	o.errs = append(o.errs, err)
}

type countingRecorder struct{ statuses []string }

func (c *countingRecorder) RecordRun(_ context.Context, status string) {
	c.statuses = append(c.statuses, status)
}

func TestStages_StateMonotonicity(t *testing.T) {
	search := &stubSearch{result: "stub live info"}
	model := &echoModel{}
	prompts := stubRenderer(t)

	seed := sampleRequest().State()
	withLocation := seed.Clone()
	withLocation[KeyLocationInfo] = "location response"
	withGuide := withLocation.Clone()
	withGuide[KeyGuideInfo] = "guide response"

	tests := []struct {
		name     string
		stage    Stage
		input    State
		produced string
	}{
		{"location", NewLocationStage(search, prompts, model), seed, KeyLocationInfo},
		{"guide", NewGuideStage(prompts, model), seed, KeyGuideInfo},
		{"planner", NewPlannerStage(search, prompts, model), withGuide, KeyFinalItinerary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.input.Clone()
			out, err := tt.stage.Run(context.Background(), tt.input)
			require.NoError(t, err)

			for k, v := range before {
				assert.Equal(t, v, out[k], "key %s changed", k)
			}
			assert.Len(t, out, len(before)+1)
			assert.Contains(t, out, tt.produced)
			assert.Equal(t, tt.produced, tt.stage.Produces())
			assert.Equal(t, before, tt.input, "input state must not be mutated")
		})
	}
}

func TestPlannerStage_FailsFastWithoutLocationInfo(t *testing.T) {
	search := &stubSearch{result: "stub live info"}
	model := &echoModel{}
	stage := NewPlannerStage(search, stubRenderer(t), model)

	state := sampleRequest().State()
	state[KeyGuideInfo] = "guide response"

	out, err := stage.Run(context.Background(), state)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingStateKey))

	var missing *MissingStateKeyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, StagePlanner, missing.Stage)
	assert.Equal(t, KeyLocationInfo, missing.Key)
	assert.Equal(t, apperrors.ErrCodeMissingStateKey, apperrors.AsStandardError(err).Code)

	assert.Empty(t, model.prompts, "model must not be called")
	assert.Empty(t, search.queries, "search must not be called")
}

func TestRunner_OrderAndFinalState(t *testing.T) {
	search := &stubSearch{result: "stub live info"}
	model := &echoModel{}
	observer := &orderObserver{}
	recorder := &countingRecorder{}

	runner, err := NewTravelRunner(search, stubRenderer(t), model,
		WithObserver(observer), WithRunRecorder(recorder), WithLogger(logger.NewTestLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, []string{StageLocation, StageGuide, StagePlanner}, runner.Stages())

	initial := sampleRequest().State()
	final, err := runner.Run(context.Background(), initial)
	require.NoError(t, err)

	assert.Equal(t, []string{StageLocation, StageGuide, StagePlanner}, observer.started)
	assert.Equal(t, observer.started, observer.finished)
	assert.Equal(t, []string{"location", "guide", "planner"}, model.ids())
	assert.Equal(t, []string{"success"}, recorder.statuses)

	for _, k := range []string{KeyLocationInfo, KeyGuideInfo, KeyFinalItinerary} {
		assert.Contains(t, final, k)
	}
	for k, v := range initial {
		assert.Equal(t, v, final[k])
	}
	assert.Len(t, final, len(SeedKeys)+3)

	assert.Equal(t, []string{
		"travel tips Singapore 2025-03-01 to 2025-03-05",
		"latest travel tips and events in Singapore 2025",
	}, search.queries)
}

func TestRunner_GuideFailurePropagates(t *testing.T) {
	search := &stubSearch{result: "stub live info"}
	model := &echoModel{failOn: "guide"}
	observer := &orderObserver{}
	recorder := &countingRecorder{}

	runner, err := NewTravelRunner(search, stubRenderer(t), model, WithObserver(observer), WithRunRecorder(recorder))
	require.NoError(t, err)

	final, err := runner.Run(context.Background(), sampleRequest().State())
	assert.Nil(t, final)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrLanguageModel))
	assert.Contains(t, err.Error(), "stage guide:")

	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, apperrors.ErrCodeLLMGenerationFailed, apperrors.AsStandardError(err).Code)

	assert.Equal(t, []string{StageLocation, StageGuide}, observer.started)
	assert.Equal(t, []string{"location", "guide"}, model.ids())
	assert.Len(t, search.queries, 1, "planner search must not run")
	assert.Equal(t, []string{"failed"}, recorder.statuses)
	require.Len(t, observer.errs, 2)
	assert.Error(t, observer.errs[1])
}

func TestPlanner_EndToEnd(t *testing.T) {
	search := &stubSearch{result: "stub live info"}
	model := &echoModel{}
	runner, err := NewTravelRunner(search, stubRenderer(t), model)
	require.NoError(t, err)

	req := sampleRequest()
	final, err := runner.Run(context.Background(), req.State())
	require.NoError(t, err)

	assert.Equal(t, "planner response", final[KeyFinalItinerary])
	assert.Equal(t, "location response", final[KeyLocationInfo])
	assert.Equal(t, "guide response", final[KeyGuideInfo])
	assert.Equal(t, "Delhi", final[KeyFromCity])
	assert.Equal(t, "Singapore", final[KeyDestinationCity])
	assert.Equal(t, "2025-03-01", final[KeyDateFrom])
	assert.Equal(t, "2025-03-05", final[KeyDateTo])
	assert.Equal(t, "food, adventure, markets", final[KeyInterests])
	assert.Equal(t, 30000.0, final[KeyBudget])

	require.Len(t, model.prompts, 3)
	assert.Contains(t, model.prompts[0], "Delhi Singapore 2025-03-01 2025-03-05 30000 stub live info")
	assert.Equal(t, "planner\nlocation response | guide response | stub live info | 30000", model.prompts[2])

	itinerary, err := NewPlanner(runner).Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "planner response", itinerary.Markdown)
	assert.Equal(t, "TravelPlan_Singapore.md", itinerary.Filename)
	assert.Equal(t, "location response", itinerary.LocationInfo)
	assert.Equal(t, "guide response", itinerary.GuideInfo)
}

func TestPlanner_RejectsInvalidRequest(t *testing.T) {
	model := &echoModel{}
	runner, err := NewTravelRunner(&stubSearch{}, stubRenderer(t), model)
	require.NoError(t, err)

	req := sampleRequest()
	req.Budget = 0
	itinerary, err := NewPlanner(runner).Plan(context.Background(), req)
	assert.Nil(t, itinerary)
	assert.Equal(t, apperrors.ErrCodeInvalidTripRequest, apperrors.AsStandardError(err).Code)
	assert.Empty(t, model.prompts)
}

// fakeStage lets runner tests control Requires and Run.
type fakeStage struct {
	name     string
	requires []string
	produces string
	run      func(State) (State, error)
	calls    int
}

func (f *fakeStage) Name() string       { return f.name }
func (f *fakeStage) Requires() []string { return f.requires }
func (f *fakeStage) Produces() string   { return f.produces }
func (f *fakeStage) Run(_ context.Context, s State) (State, error) {
	f.calls++
	return f.run(s)
}

func TestRunner_ChecksInputSchemaBeforeStage(t *testing.T) {
	stage := &fakeStage{
		name: "needs-guide", requires: []string{KeyGuideInfo}, produces: "x",
		run: func(s State) (State, error) { return s.With("x", "y") },
	}
	runner, err := NewRunner([]Stage{stage})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), State{"other": "value"})
	var missing *MissingStateKeyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, KeyGuideInfo, missing.Key)
	assert.Equal(t, 0, stage.calls)
}

func TestRunner_RejectsInvalidStateValue(t *testing.T) {
	stage := &fakeStage{
		name: "typed", requires: []string{KeyBudget}, produces: "x",
		run: func(s State) (State, error) { return s.With("x", "y") },
	}
	runner, err := NewRunner([]Stage{stage})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), State{KeyBudget: []string{"not", "a", "number"}})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, stage.calls)
}

func TestRunner_DetectsOverwritingStage(t *testing.T) {
	stage := &fakeStage{
		name: "rogue", produces: KeyBudget,
		run: func(s State) (State, error) {
			out := s.Clone()
			out[KeyBudget] = 1.0
			return out, nil
		},
	}
	runner, err := NewRunner([]Stage{stage})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), State{KeyBudget: 30000.0})
	assert.ErrorIs(t, err, ErrKeyOverwrite)
}

func TestRunner_DetectsShrinkingStage(t *testing.T) {
	stage := &fakeStage{
		name: "shrink", produces: "x",
		run:  func(State) (State, error) { return State{"x": "y"}, nil },
	}
	runner, err := NewRunner([]Stage{stage})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), State{KeyBudget: 30000.0})
	assert.ErrorIs(t, err, ErrStateShrunk)
}

func TestNewRunner_RequiresStages(t *testing.T) {
	_, err := NewRunner(nil)
	assert.Error(t, err)
}

func TestCheckWiring(t *testing.T) {
	prompts := stubRenderer(t)
	model := &echoModel{}
	search := &stubSearch{}
	location := NewLocationStage(search, prompts, model)
	guide := NewGuideStage(prompts, model)
	planner := NewPlannerStage(search, prompts, model)

	assert.NoError(t, CheckWiring([]Stage{location, guide, planner}, SeedKeys))
	assert.NoError(t, CheckWiring([]Stage{guide, location, planner}, SeedKeys))

	err := CheckWiring([]Stage{location, planner, guide}, SeedKeys)
	assert.ErrorIs(t, err, ErrUnwired)
	assert.Contains(t, err.Error(), KeyGuideInfo)

	err = CheckWiring([]Stage{location, location}, SeedKeys)
	assert.ErrorIs(t, err, ErrKeyOverwrite)
}

func TestState_With(t *testing.T) {
	s := State{KeyFromCity: "Delhi"}

	next, err := s.With(KeyDestinationCity, "Singapore")
	require.NoError(t, err)
	assert.Equal(t, "Singapore", next[KeyDestinationCity])
	assert.False(t, s.Has(KeyDestinationCity), "original must be untouched")

	_, err = next.With(KeyFromCity, "Mumbai")
	assert.ErrorIs(t, err, ErrKeyOverwrite)
	assert.Equal(t, apperrors.ErrCodeStateKeyOverwrite, apperrors.AsStandardError(err).Code)

	assert.Equal(t, []string{KeyDestinationCity, KeyFromCity}, next.Keys())
	assert.Equal(t, "30000", State{KeyBudget: 30000.0}.String(KeyBudget))
	assert.Equal(t, "", s.String("absent"))
}

func TestQueries(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := sampleRequest().State()

	assert.Equal(t, "travel tips Singapore 2025-03-01 to 2025-03-05", LocationQuery(state))
	assert.Equal(t, "latest travel tips and events in Singapore 2025", PlannerQuery(state, now))

	delete(state, KeyDateFrom)
	assert.Equal(t, "latest travel tips and events in Singapore 2026", PlannerQuery(state, now))
}

func TestStage_TemplateErrorAborts(t *testing.T) {
	prompts := stubRenderer(t)
	require.NoError(t, prompts.WithTemplate(prompt.TemplateGuide, "guide\n{{.unknown_key}}"))
	model := &echoModel{}

	_, err := NewGuideStage(prompts, model).Run(context.Background(), sampleRequest().State())
	assert.Equal(t, apperrors.ErrCodeTemplateRenderFailed, apperrors.AsStandardError(err).Code)
	assert.Empty(t, model.prompts)
}
