package env

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/abonie/quickcheck-state-machine/action"
)

var (
	// Returned when resolving a reference that no value has been bound to.
	// Programs only reference earlier steps, so an unbound reference means
	// the program or the environment has been constructed incorrectly.
	UnboundRefError = errors.New("env: The reference has not been bound to a value")
)

// An Environment holds the concrete responses bound while executing a
// program.
//
// It is append only. The step at position i binds Ref(i), so the
// environment of a partially executed program always covers exactly the
// references of the executed steps.
type Environment struct {
	vals []any
}

// Create an empty environment.
func New() *Environment {
	return &Environment{vals: []any{}}
}

// Bind v to the next free reference and return that reference.
func (e *Environment) Extend(v any) action.Ref {
	e.vals = append(e.vals, v)
	return action.Ref(len(e.vals) - 1)
}

// Resolve returns the value bound to r.
// The second return value is false if r has not been bound.
func (e *Environment) Resolve(r action.Ref) (any, bool) {
	if r < 0 || int(r) >= len(e.vals) {
		return nil, false
	}
	return e.vals[r], true
}

// The number of bound references.
func (e *Environment) Len() int {
	return len(e.vals)
}

// Clone returns an environment with the same bindings.
// Extending the clone does not affect the original, so concurrent branches
// can extend their own clone of a shared prefix environment.
func (e *Environment) Clone() *Environment {
	return &Environment{vals: slices.Clone(e.vals)}
}

// Concretize replaces every reference in the action with the value bound
// to it.
//
// Actions without reference arguments are returned unchanged.
// Returns an UnboundRefError if the action mentions a reference that the
// environment does not cover.
func Concretize[S any](act action.Action[S], e *Environment) (action.Action[S], error) {
	ra, ok := act.(action.RefAction[S])
	if !ok {
		return act, nil
	}
	missing := action.Ref(-1)
	out := ra.MapRefs(func(arg any) any {
		r, ok := arg.(action.Ref)
		if !ok {
			return arg
		}
		v, ok := e.Resolve(r)
		if !ok {
			if missing < 0 {
				missing = r
			}
			return arg
		}
		return v
	})
	if missing >= 0 {
		return nil, errors.Wrapf(UnboundRefError, "env: %v mentions %v but only %v references are bound", act, missing, e.Len())
	}
	return out, nil
}
