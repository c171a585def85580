package action

import (
	"fmt"
)

// A Ref identifies the response of an earlier step in a program.
//
// The step at position i in a program binds Ref(i).
// During generation and shrinking a Ref stands in for the response of the
// step that binds it. During execution it is replaced by the concrete
// response observed from the system under test.
type Ref int

func (r Ref) String() string {
	return fmt.Sprintf("&%d", int(r))
}

// An Action is a single operation against the system under test together
// with its model semantics.
//
// The same action value is used in two phases.
// During generation and shrinking the response passed to Apply and Check is
// the Ref bound by the step. During execution and checking it is the
// concrete response returned by Run.
// Implementations should treat the response as an opaque value and must not
// depend on which phase they are called in.
type Action[S any] interface {
	// Reports whether the action may be issued from the given model state.
	Precondition(state S) bool

	// Advances the model state with the response of the action.
	// Must not mutate the given state.
	Apply(state S, resp any) S

	// Reports whether the response is acceptable in the given model state.
	// The response is the value returned by Run, or the error if Run
	// returned one.
	Check(state S, resp any) bool

	// Issues the action against the system under test and returns the
	// response. A returned error is delivered to Check as the response.
	Run(target any) (any, error)

	fmt.Stringer
}

// A RefAction is an action whose arguments refer to responses of earlier
// steps.
//
// Actions that do not take references only need to implement Action.
type RefAction[S any] interface {
	Action[S]

	// Returns a copy of the action with f applied to every
	// reference-carrying argument.
	// The argument passed to f is either a Ref or a concrete response,
	// depending on the phase. MapRefs must not mutate the receiver.
	MapRefs(f func(arg any) any) Action[S]
}

// Refs returns the references mentioned by the arguments of the action.
//
// Returns nil for actions that do not implement RefAction and for actions
// whose arguments have already been replaced by concrete responses.
func Refs[S any](act Action[S]) []Ref {
	ra, ok := act.(RefAction[S])
	if !ok {
		return nil
	}
	var refs []Ref
	ra.MapRefs(func(arg any) any {
		if r, ok := arg.(Ref); ok {
			refs = append(refs, r)
		}
		return arg
	})
	return refs
}

// Renumber returns a copy of the action with every reference replaced
// according to the mapping.
//
// References that are not in the mapping are kept unchanged, as are
// arguments that are not references.
// Actions that do not implement RefAction are returned unchanged.
func Renumber[S any](act Action[S], mapping map[Ref]Ref) Action[S] {
	ra, ok := act.(RefAction[S])
	if !ok {
		return act
	}
	return ra.MapRefs(func(arg any) any {
		r, ok := arg.(Ref)
		if !ok {
			return arg
		}
		if to, ok := mapping[r]; ok {
			return to
		}
		return r
	})
}
