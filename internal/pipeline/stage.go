package pipeline

import (
	"context"
	"fmt"

	"travel-planner/internal/common/validation"
)

// Stage is one step of the pipeline. Run returns a new State equal to its
// input plus the key named by Produces.
type Stage interface {
	Name() string
	Requires() []string
	Produces() string
	Run(ctx context.Context, state State) (State, error)
}

// Searcher is the live lookup used to enrich prompts. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

type Renderer interface {
	Render(templateID string, params map[string]interface{}) (string, error)
}

// inputSchema is the compiled JSON Schema for a stage's required keys.
type inputSchema struct {
	stage  string
	schema *validation.Schema
}

func newInputSchema(stage string, keys []string) (*inputSchema, error) {
	s, err := validation.CompileRequiredKeys(keys)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", stage, err)
	}
	return &inputSchema{stage: stage, schema: s}, nil
}

func mustInputSchema(stage string, keys []string) *inputSchema {
	s, err := newInputSchema(stage, keys)
	if err != nil {
		panic(err)
	}
	return s
}

// check returns a MissingStateKeyError for the first absent key, or an
// InvalidStateError when keys hold values of the wrong type.
func (s *inputSchema) check(state State) error {
	if state == nil {
		state = State{}
	}
	result := s.schema.Validate(map[string]interface{}(state))
	if result.Valid {
		return nil
	}
	if missing := result.MissingFields(); len(missing) > 0 {
		return &MissingStateKeyError{Stage: s.stage, Key: missing[0]}
	}
	return &InvalidStateError{Stage: s.stage, Problems: result.GetErrorMessages()}
}
