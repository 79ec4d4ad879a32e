package orchestrator

import (
	"fmt"
	"strings"
)

// State is the process-wide loading state.
type State int32

const (
	// StateModelLoading is the initial state until the pipeline is loaded.
	StateModelLoading State = iota
	// StateIdle accepts a new generation.
	StateIdle
	// StateGenerating means a generation is in flight.
	StateGenerating
	// StateUnavailable is terminal: the model failed to load.
	StateUnavailable
)

var stateNames = map[State]string{
	StateModelLoading: "loading",
	StateIdle:         "idle",
	StateGenerating:   "generating",
	StateUnavailable:  "unavailable",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for state, candidate := range stateNames {
		if candidate == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("orchestrator: unknown state %q", name)
}

// Status classifies a Result.
type Status string

const (
	// StatusOK marks a result produced from model output.
	StatusOK Status = "ok"
	// StatusSkipped marks a blank prompt that was ignored.
	StatusSkipped Status = "skipped"
	// StatusFailed marks a result carrying FallbackHTML.
	StatusFailed Status = "failed"
)
