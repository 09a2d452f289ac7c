package pipeline

import (
	"errors"
	"fmt"
	"strings"

	apperrors "travel-planner/internal/common/errors"
)

var (
	ErrMissingStateKey = errors.New("missing state key")
	ErrKeyOverwrite    = errors.New("state key already set")
	ErrStateShrunk     = errors.New("state lost a key")
	ErrInvalidState    = errors.New("invalid state value")
	ErrUnwired         = errors.New("stage input is never produced")
	ErrNoItinerary     = errors.New("pipeline finished without an itinerary")
)

// MissingStateKeyError reports a required input key absent when a stage starts.
type MissingStateKeyError struct {
	Stage string
	Key   string
}

func (e *MissingStateKeyError) Error() string {
	return fmt.Sprintf("stage %s: required state key %q is missing", e.Stage, e.Key)
}

func (e *MissingStateKeyError) Is(target error) bool { return target == ErrMissingStateKey }

func (e *MissingStateKeyError) ToStandardError() *apperrors.StandardError {
	return apperrors.NewMissingStateKeyError(e.Stage, e.Key)
}

type KeyOverwriteError struct {
	Stage string
	Key   string
}

func (e *KeyOverwriteError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("state key %q already set", e.Key)
	}
	return fmt.Sprintf("stage %s: state key %q already set", e.Stage, e.Key)
}

func (e *KeyOverwriteError) Is(target error) bool { return target == ErrKeyOverwrite }

func (e *KeyOverwriteError) ToStandardError() *apperrors.StandardError {
	return apperrors.NewStateKeyOverwriteError(e.Stage, e.Key)
}

// InvalidStateError reports required keys present with a value the stage cannot use.
type InvalidStateError struct {
	Stage    string
	Problems []string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("stage %s: invalid state: %s", e.Stage, strings.Join(e.Problems, "; "))
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

func (e *InvalidStateError) ToStandardError() *apperrors.StandardError {
	return apperrors.NewInternalError(e)
}
