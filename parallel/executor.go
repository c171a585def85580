package parallel

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/env"
	"github.com/abonie/quickcheck-state-machine/history"
	"github.com/abonie/quickcheck-state-machine/program"
	"github.com/abonie/quickcheck-state-machine/runner"
)

// Executes forks against the system under test.
//
// The prefix of a fork is executed sequentially, with postconditions
// checked after every step. The two branches are then executed truly
// concurrently, each on its own goroutine. No checking happens during the
// branches: every invocation and completion is recorded in a history, and
// the checker decides afterwards whether the observed behavior
// linearizes.
type Executor[S any] struct {
	initial S

	// If true panics raised by an action are not recovered.
	ignorePanics bool
}

// Create a new executor.
//
// initial is the model state the forks were generated from.
func New[S any](initial S, ignorePanics bool) *Executor[S] {
	return &Executor[S]{
		initial:      initial,
		ignorePanics: ignorePanics,
	}
}

// The record of one concurrent execution of a fork.
type Trial[S any] struct {
	// The recorded events, ordered by time.
	History history.History[S]

	// The model state after the prefix.
	Mid S

	// The prefix bindings. Each branch extended its own clone of this
	// environment while executing.
	PrefixEnv *env.Environment

	// Set if a postcondition failed during the sequential prefix.
	// The branches were not executed.
	PrefixFailure *runner.Result[S]
}

// RunTrial executes the fork once against the target and records the
// history.
//
// The target must be fresh: responses bound by earlier trials do not
// carry over. The returned error means the engine or the action
// vocabulary is defective, not that the property failed.
func (x *Executor[S]) RunTrial(f program.Fork[S], target any) (*Trial[S], error) {
	if err := f.Wellformed(); err != nil {
		return nil, err
	}

	var clock uint64
	tick := func() uint64 { return atomic.AddUint64(&clock, 1) }

	trial := &Trial[S]{PrefixEnv: env.New()}

	prefixEvents, failure, err := x.runPrefix(f.Prefix, target, trial.PrefixEnv, tick)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		trial.History = history.FromEvents(prefixEvents)
		trial.PrefixFailure = failure
		return trial, nil
	}
	trial.Mid = program.Replay(f.Prefix, x.initial)

	var left, right []history.Event[S]
	grp := new(errgroup.Group)
	grp.Go(func() error {
		var err error
		left, err = x.runBranch(history.Left, f.Left, target, trial.PrefixEnv.Clone(), tick)
		return err
	})
	grp.Go(func() error {
		var err error
		right, err = x.runBranch(history.Right, f.Right, target, trial.PrefixEnv.Clone(), tick)
		return err
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	events := append(prefixEvents, left...)
	events = append(events, right...)
	trial.History = history.FromEvents(events)
	return trial, nil
}

// runPrefix executes the prefix sequentially, checking postconditions.
// Returns the recorded events and, if a postcondition failed, the failure.
func (x *Executor[S]) runPrefix(p program.Program[S], target any, e *env.Environment, tick func() uint64) ([]history.Event[S], *runner.Result[S], error) {
	events := []history.Event[S]{}
	state := x.initial
	for i, st := range p.Steps {
		act, err := env.Concretize(st.Act, e)
		if err != nil {
			return nil, nil, err
		}
		if !act.Precondition(state) {
			return nil, nil, errors.Wrapf(runner.PreconditionError, "parallel: Prefix step %v: %v", i, act)
		}

		events = append(events, history.Event[S]{
			Kind: history.Invoke, Branch: history.Prefix, Index: i, Ref: st.Ref, Act: act, Time: tick(),
		})
		resp, _ := x.invoke(act, target)
		events = append(events, history.Event[S]{
			Kind: history.Complete, Branch: history.Prefix, Index: i, Ref: st.Ref, Act: act, Resp: resp, Time: tick(),
		})

		if !act.Check(state, resp) {
			failure := &runner.Result[S]{
				Ok:         false,
				Program:    p,
				Env:        e,
				FailedStep: i,
				FailedAct:  act,
				Resp:       resp,
				Before:     state,
			}
			return events, failure, nil
		}
		e.Extend(resp)
		state = act.Apply(state, resp)
	}
	return events, nil, nil
}

// runBranch executes one branch, recording events. Postconditions are not
// checked. A recovered panic completes the operation with the panic as an
// error response and ends the branch, since the target may be left in an
// unusable state.
func (x *Executor[S]) runBranch(branch history.Branch, p program.Program[S], target any, e *env.Environment, tick func() uint64) ([]history.Event[S], error) {
	events := []history.Event[S]{}
	for i, st := range p.Steps {
		act, err := env.Concretize(st.Act, e)
		if err != nil {
			return nil, err
		}

		events = append(events, history.Event[S]{
			Kind: history.Invoke, Branch: branch, Index: i, Ref: st.Ref, Act: act, Time: tick(),
		})
		resp, panicked := x.invoke(act, target)
		events = append(events, history.Event[S]{
			Kind: history.Complete, Branch: branch, Index: i, Ref: st.Ref, Act: act, Resp: resp, Time: tick(),
		})

		if panicked {
			break
		}
		e.Extend(resp)
	}
	return events, nil
}

// invoke issues the action and folds errors into the response.
// Recovered panics become error responses, with panicked set so the
// caller can stop issuing actions against the target.
func (x *Executor[S]) invoke(act action.Action[S], target any) (resp any, panicked bool) {
	if !x.ignorePanics {
		defer func() {
			if p := recover(); p != nil {
				resp = fmt.Errorf("parallel: Action panicked while executing: %v \nStack Trace:\n %s", p, debug.Stack())
				panicked = true
			}
		}()
	}
	out, err := act.Run(target)
	if err != nil {
		return err, false
	}
	return out, false
}
