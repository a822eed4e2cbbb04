// Package nodestore defines the interface for storing the mutable BuildState
// of each target during a run, and the transition table every implementation
// enforces.
//
// # Why a separate store
//
// The dependency graph (package dag) is immutable once built. Everything that
// changes while a run progresses, the state of each target and the error that
// failed it, lives here instead, so the orchestrator, the status endpoint and
// the CLI summary can all read it without touching the graph.
//
// # State transitions
//
//	Pending → Resolving → Configuring → Building → Packaged
//	                          └──────────(cache hit)──────┘
//
// Any non-terminal state may move to Failed. Packaged and Failed are terminal.
package nodestore

import (
	"context"
	"errors"
	"fmt"
)

// State is the lifecycle position of one target within a run.
type State int

const (
	Pending State = iota
	Resolving
	Configuring
	Building
	Packaged
	Failed
)

var stateNames = [...]string{"pending", "resolving", "configuring", "building", "packaged", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == Packaged || s == Failed
}

// ErrInvalidTransition is returned for moves the transition table forbids or
// whose expected prior state does not match.
var ErrInvalidTransition = errors.New("invalid state transition")

// Allowed reports whether the transition table permits from -> to.
func Allowed(from, to State) bool {
	if to == Failed {
		return !from.Terminal()
	}
	switch from {
	case Pending:
		return to == Resolving
	case Resolving:
		return to == Configuring
	case Configuring:
		return to == Building || to == Packaged
	case Building:
		return to == Packaged
	default:
		return false
	}
}

// Store tracks the BuildState and failure of every target in a run.
//
// Implementations MUST be safe for concurrent use: workers update different
// targets in parallel while the status endpoint reads all of them.
type Store interface {
	// Init registers names in the Pending state.
	Init(ctx context.Context, names ...string) error

	// Transition moves name from the expected state to the next one. It fails
	// with ErrInvalidTransition when the current state is not from or when the
	// table forbids the move, making races observable.
	Transition(ctx context.Context, name string, from, to State) error

	// Fail moves name to Failed from whatever non-terminal state it is in and
	// records cause.
	Fail(ctx context.Context, name string, cause error) error

	// GetState returns the current state of name.
	GetState(ctx context.Context, name string) (State, error)

	// GetError returns the error recorded by Fail, or nil.
	GetError(ctx context.Context, name string) (error, error)

	// Snapshot returns the current state of every registered target.
	Snapshot(ctx context.Context) map[string]State
}
