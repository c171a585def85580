package generator

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/program"
)

// Number of candidates drawn for a single step before generation gives up
// with an ExhaustedError.
const maxAttempts = 100

// Sequence generates a program of up to n actions.
//
// Every action is precondition-valid in the model state produced by
// replaying the actions before it. The program is shorter than n only if
// the generator returns nil.
func Sequence[S any](g Generator[S], initial S, n int, rng *rand.Rand) (program.Program[S], error) {
	steps, _, err := extend(g, initial, 0, n, rng)
	return program.Program[S]{Steps: steps}, err
}

// Fork generates a fork with a prefix of up to npre actions and two
// branches of up to nbr actions each.
//
// Each branch on its own is a valid sequential continuation of the prefix.
// Branch references continue the numbering of the prefix.
func Fork[S any](g Generator[S], initial S, npre, nbr int, rng *rand.Rand) (program.Fork[S], error) {
	prefixSteps, mid, err := extend(g, initial, 0, npre, rng)
	if err != nil {
		return program.Fork[S]{}, err
	}
	base := action.Ref(len(prefixSteps))

	leftSteps, _, err := extend(g, mid, base, nbr, rng)
	if err != nil {
		return program.Fork[S]{}, err
	}
	rightSteps, _, err := extend(g, mid, base, nbr, rng)
	if err != nil {
		return program.Fork[S]{}, err
	}

	return program.Fork[S]{
		Prefix: program.Program[S]{Steps: prefixSteps},
		Left:   program.Program[S]{Steps: leftSteps},
		Right:  program.Program[S]{Steps: rightSteps},
	}, nil
}

// extend generates up to n valid steps starting from the given state and
// reference. Returns the steps and the model state after them.
func extend[S any](g Generator[S], state S, first action.Ref, n int, rng *rand.Rand) ([]program.Step[S], S, error) {
	steps := []program.Step[S]{}
	for i := 0; i < n; i++ {
		next := first + action.Ref(i)
		act, err := generateValid(g, state, next, rng)
		if err != nil {
			return nil, state, err
		}
		if act == nil {
			break
		}
		steps = append(steps, program.Step[S]{Ref: next, Act: act})
		state = act.Apply(state, next)
	}
	return steps, state, nil
}

// generateValid draws candidates until one passes its precondition.
// Returns nil if the generator is done.
func generateValid[S any](g Generator[S], state S, next action.Ref, rng *rand.Rand) (action.Action[S], error) {
	for i := 0; i < maxAttempts; i++ {
		act := g.Generate(rng, state, next)
		if act == nil {
			return nil, nil
		}
		for _, r := range action.Refs(act) {
			if r < 0 || r >= next {
				return nil, errors.Wrapf(InvalidRefError, "generator: %v mentions %v, only references below %v are bound", act, r, next)
			}
		}
		if act.Precondition(state) {
			return act, nil
		}
	}
	return nil, errors.Wrapf(ExhaustedError, "generator: Gave up after %v attempts", maxAttempts)
}
