package runner

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"

	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/env"
	"github.com/abonie/quickcheck-state-machine/program"
)

var (
	// Returned when a precondition that held during generation does not
	// hold during execution. The model transitions are not deterministic,
	// which breaks the assumptions the generated program was built under.
	PreconditionError = errors.New("runner: A precondition was violated while executing the program")
)

// Executes programs sequentially against the system under test, checking
// the model semantics after every step.
type Runner[S any] struct {
	initial S

	// If true panics raised by an action are not recovered.
	// If false they are caught and delivered to the postcondition as the
	// response.
	ignorePanics bool
}

// Create a new runner.
//
// initial is the model state the programs were generated from.
func New[S any](initial S, ignorePanics bool) *Runner[S] {
	return &Runner[S]{
		initial:      initial,
		ignorePanics: ignorePanics,
	}
}

// The result of executing a program.
type Result[S any] struct {
	// True if every postcondition held.
	Ok bool

	// The executed program.
	Program program.Program[S]

	// The responses bound during execution. Covers the executed steps.
	Env *env.Environment

	// Position of the failing step. -1 if Ok is true.
	FailedStep int

	// The failing action with references resolved, the response that was
	// rejected and the model state the action was issued from.
	FailedAct action.Action[S]
	Resp      any
	Before    S
}

// Run executes the program against the target.
//
// Each step resolves its references against the environment, issues the
// action, checks the response against the model and advances the model
// with the response. Execution stops at the first failing postcondition.
//
// The returned error is nil for both passing and failing programs.
// An error means the engine or the action vocabulary is defective:
// a malformed program, an unbound reference or a run-time precondition
// violation.
func (r *Runner[S]) Run(p program.Program[S], target any) (*Result[S], error) {
	if err := program.Wellformed(p); err != nil {
		return nil, err
	}

	e := env.New()
	state := r.initial
	for i, st := range p.Steps {
		act, err := env.Concretize(st.Act, e)
		if err != nil {
			return nil, err
		}
		if !act.Precondition(state) {
			return nil, errors.Wrapf(PreconditionError, "runner: Step %v: %v", i, act)
		}

		resp := r.invoke(act, target)
		if !act.Check(state, resp) {
			return &Result[S]{
				Ok:         false,
				Program:    p,
				Env:        e,
				FailedStep: i,
				FailedAct:  act,
				Resp:       resp,
				Before:     state,
			}, nil
		}

		if bound := e.Extend(resp); bound != st.Ref {
			return nil, fmt.Errorf("runner: Step %v bound %v, expected %v", i, bound, st.Ref)
		}
		state = act.Apply(state, resp)
	}

	return &Result[S]{Ok: true, Program: p, Env: e, FailedStep: -1}, nil
}

// invoke issues the action and folds errors into the response.
// Recovered panics are folded the same way, so the postcondition decides
// whether a crash is acceptable.
func (r *Runner[S]) invoke(act action.Action[S], target any) (resp any) {
	if !r.ignorePanics {
		defer func() {
			if p := recover(); p != nil {
				resp = fmt.Errorf("runner: Action panicked while executing: %v \nStack Trace:\n %s", p, debug.Stack())
			}
		}()
	}
	out, err := act.Run(target)
	if err != nil {
		return err
	}
	return out
}
