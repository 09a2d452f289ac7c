// Package pipeline runs the location, guide and planner stages that turn a
// trip request into a markdown itinerary.
package pipeline

import (
	"fmt"
	"reflect"
	"sort"
)

// State keys shared by the stages.
const (
	KeyFromCity        = "from_city"
	KeyDestinationCity = "destination_city"
	KeyDateFrom        = "date_from"
	KeyDateTo          = "date_to"
	KeyInterests       = "interests"
	KeyBudget          = "budget"

	KeyLocationInfo   = "location_info"
	KeyGuideInfo      = "guide_info"
	KeyFinalItinerary = "final_itinerary"
)

// SeedKeys are the keys a TripRequest puts into the initial state.
var SeedKeys = []string{KeyFromCity, KeyDestinationCity, KeyDateFrom, KeyDateTo, KeyInterests, KeyBudget}

// State is the key/value record threaded through the stages. Stages treat it
// as immutable and derive a new State with With.
type State map[string]interface{}

// Clone returns a shallow copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// With returns a copy of s with key set. Setting a key that already exists fails.
func (s State) With(key string, value interface{}) (State, error) {
	if _, exists := s[key]; exists {
		return nil, &KeyOverwriteError{Key: key}
	}
	out := s.Clone()
	out[key] = value
	return out, nil
}

func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String returns the value under key formatted as text.
func (s State) String(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Keys returns the keys of s in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Params copies the listed keys into a template parameter map.
func (s State) Params(keys ...string) map[string]interface{} {
	params := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			params[k] = v
		}
	}
	return params
}

// checkMonotonic verifies that next keeps every key of prev with the same value.
func checkMonotonic(stage string, prev, next State) error {
	for k, v := range prev {
		nv, ok := next[k]
		if !ok {
			return fmt.Errorf("%w: stage %s removed key %q", ErrStateShrunk, stage, k)
		}
		if !reflect.DeepEqual(v, nv) {
			return &KeyOverwriteError{Stage: stage, Key: k}
		}
	}
	return nil
}
