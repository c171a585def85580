package generator

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/abonie/quickcheck-state-machine/action"
)

var (
	// Returned when no precondition-valid action could be generated for a
	// model state within the attempt budget. This usually means the
	// generator does not cover the state it was shown.
	ExhaustedError = errors.New("generator: No valid action could be generated for the state")

	// Returned when a generated action mentions a reference that has not
	// been bound yet.
	InvalidRefError = errors.New("generator: The action mentions a reference before it is bound")
)

// A Generator proposes candidate actions for a program.
//
// The engine retries generation until a precondition-valid action is
// returned, so Generate is free to propose invalid candidates.
type Generator[S any] interface {
	// Generate returns a candidate action for the given model state.
	// next is the reference the response of the action will be bound to;
	// the candidate may mention any reference smaller than next.
	// Returning nil stops the program early.
	Generate(rng *rand.Rand, state S, next action.Ref) action.Action[S]
}

// Func adapts a function to the Generator interface.
type Func[S any] func(rng *rand.Rand, state S, next action.Ref) action.Action[S]

func (f Func[S]) Generate(rng *rand.Rand, state S, next action.Ref) action.Action[S] {
	return f(rng, state, next)
}

// A Scripted generator proposes actions from a fixed list, in order.
// Generate returns nil once the list is exhausted.
//
// Used in tests of the engine, where the generated program must be known
// in advance.
type Scripted[S any] struct {
	acts []action.Action[S]
	pos  int
}

func NewScripted[S any](acts ...action.Action[S]) *Scripted[S] {
	return &Scripted[S]{acts: acts}
}

func (sc *Scripted[S]) Generate(_ *rand.Rand, _ S, _ action.Ref) action.Action[S] {
	if sc.pos >= len(sc.acts) {
		return nil
	}
	act := sc.acts[sc.pos]
	sc.pos++
	return act
}
