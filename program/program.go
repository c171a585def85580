package program

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/abonie/quickcheck-state-machine/action"
)

var (
	// Returned when a program does not maintain the binding invariant or
	// mentions references before they are bound.
	MalformedProgramError = errors.New("program: The program is malformed")
)

// A Step is one action of a program together with the reference its
// response is bound to.
type Step[S any] struct {
	Ref action.Ref
	Act action.Action[S]
}

func (st Step[S]) String() string {
	return fmt.Sprintf("%v <- %v", st.Ref, st.Act)
}

// A Program is an ordered sequence of actions.
//
// The step at position i binds Ref(i). Steps may reference the responses
// of earlier steps through the action.Ref arguments of their actions.
type Program[S any] struct {
	Steps []Step[S]
}

// Create a program from the given actions, binding the step at position i
// to Ref(i).
func New[S any](acts ...action.Action[S]) Program[S] {
	return NewFrom(0, acts...)
}

// Create a program whose first step binds the given reference.
// Used for the branches of a fork, which continue the numbering of the
// prefix.
func NewFrom[S any](first action.Ref, acts ...action.Action[S]) Program[S] {
	steps := make([]Step[S], len(acts))
	for i, act := range acts {
		steps[i] = Step[S]{Ref: first + action.Ref(i), Act: act}
	}
	return Program[S]{Steps: steps}
}

func (p Program[S]) Len() int {
	return len(p.Steps)
}

// Clone returns a program with a copied step slice.
func (p Program[S]) Clone() Program[S] {
	return Program[S]{Steps: slices.Clone(p.Steps)}
}

func (p Program[S]) String() string {
	lines := make([]string, len(p.Steps))
	for i, st := range p.Steps {
		lines[i] = st.String()
	}
	return strings.Join(lines, "\n")
}

// Wellformed verifies that consecutive steps bind consecutive references
// and that every action only mentions references bound by earlier steps.
//
// Returns a MalformedProgramError describing the first violation, or nil.
func Wellformed[S any](p Program[S]) error {
	if p.Len() == 0 {
		return nil
	}
	first := p.Steps[0].Ref
	for i, st := range p.Steps {
		if st.Ref != first+action.Ref(i) {
			return errors.Wrapf(MalformedProgramError, "program: Step %v binds %v, expected %v", i, st.Ref, first+action.Ref(i))
		}
		for _, r := range action.Refs(st.Act) {
			if r < 0 || r >= st.Ref {
				return errors.Wrapf(MalformedProgramError, "program: Step %v mentions %v before it is bound", i, r)
			}
		}
	}
	return nil
}

// Replay folds the program over the model, feeding every action its own
// reference as the response.
//
// This is the generation-phase reading of the program: the model advances
// through the same states it saw while the program was generated.
func Replay[S any](p Program[S], initial S) S {
	state := initial
	for _, st := range p.Steps {
		state = st.Act.Apply(state, st.Ref)
	}
	return state
}

// Valid reports whether every precondition holds when the program is
// replayed from the given state.
func Valid[S any](p Program[S], initial S) bool {
	state := initial
	for _, st := range p.Steps {
		if !st.Act.Precondition(state) {
			return false
		}
		state = st.Act.Apply(state, st.Ref)
	}
	return true
}
