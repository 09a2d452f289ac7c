package search

import "context"

// Static always answers with the same Result, or Err when set.
type Static struct {
	Result Result
	Err    error
}

func (s *Static) Name() string { return "static" }

func (s *Static) Lookup(_ context.Context, _ string, _ int) (Result, error) {
	if s.Err != nil {
		return Result{}, s.Err
	}
	return s.Result, nil
}
