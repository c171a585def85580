package qsm

import (
	"io"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"github.com/abonie/quickcheck-state-machine/checking"
	"github.com/abonie/quickcheck-state-machine/config"
	"github.com/abonie/quickcheck-state-machine/generator"
	"github.com/abonie/quickcheck-state-machine/parallel"
	"github.com/abonie/quickcheck-state-machine/program"
	"github.com/abonie/quickcheck-state-machine/runner"
)

// Stores the configured check.
//
// Can be used to run multiple checks.
// A check is started by calling the Sequential, Parallel or Replay
// method.
type Check[S any] struct {
	gen     generator.Generator[S]
	initial S

	runs       int
	maxActions int

	prefixActions int
	branchActions int
	forks         int
	trials        int

	seed         int64
	key          func(S) string
	noShrink     bool
	ignorePanics bool

	log *log.Entry
}

// Run the sequential check.
//
// Generates programs and executes them against fresh targets, checking
// the postcondition of every action. The first failing program is shrunk
// to a minimal counterexample before it is reported.
//
// The TargetOption is mandatory. All RunOptions are optional. Default
// values will be used if no values are provided.
//
// Returns a checking.Verdict type containing the result of the check.
func (c Check[S]) Sequential(target TargetOption, opts ...RunOption) checking.Verdict {
	ro := c.runConfig(target, opts)
	ro.setup()
	defer ro.teardown()

	rng := rand.New(rand.NewSource(c.seed))
	c.log.Debugf("Starting sequential check: %v runs with seed %v", c.runs, c.seed)
	for i := 0; i < c.runs; i++ {
		p, err := generator.Sequence(c.gen, c.initial, 1+rng.Intn(c.maxActions), rng)
		if err != nil {
			c.log.Panicf("Received an error while generating a program: %v", err)
		}
		res := c.execute(p, target, ro)
		if res.Ok {
			continue
		}
		c.log.Debugf("Run %v failed at step %v, shrinking the program", i+1, res.FailedStep)
		return c.report(c.shrink(p, res, target, ro, i+1), ro)
	}
	return c.report(checking.SequentialPass{Runs: c.runs}, ro)
}

// Run the parallel check.
//
// Generates forks and executes each one multiple times against fresh
// targets. The prefix of a fork executes sequentially with
// postconditions checked. The two branches then execute concurrently,
// recording the invocation and response of every action. Each recorded
// history must linearize: some ordering of the branch actions,
// consistent with the order observed during the execution, must explain
// every response through the model.
//
// The TargetOption is mandatory. All RunOptions are optional. Default
// values will be used if no values are provided.
//
// Returns a checking.Verdict type containing the result of the check.
func (c Check[S]) Parallel(target TargetOption, opts ...RunOption) checking.Verdict {
	ro := c.runConfig(target, opts)
	ro.setup()
	defer ro.teardown()

	rng := rand.New(rand.NewSource(c.seed))
	exec := parallel.New(c.initial, c.ignorePanics)
	check := checking.New(c.initial, c.key, true)
	c.log.Debugf("Starting parallel check: %v forks with %v trials each, seed %v", c.forks, c.trials, c.seed)
	for i := 0; i < c.forks; i++ {
		f, err := generator.Fork(c.gen, c.initial, c.prefixActions, c.branchActions, rng)
		if err != nil {
			c.log.Panicf("Received an error while generating a fork: %v", err)
		}
		for j := 0; j < c.trials; j++ {
			trial := c.executeTrial(exec, f, target, ro)
			if res := trial.PrefixFailure; res != nil {
				c.log.Debugf("Fork %v trial %v failed during the prefix", i+1, j+1)
				v := checking.SequentialFailure[S]{
					Program: res.Program,
					Step:    res.FailedStep,
					Act:     res.FailedAct,
					Resp:    res.Resp,
					Before:  res.Before,
					Runs:    i + 1,
				}
				return c.report(v, ro)
			}
			v := check.Check(f, trial.History)
			if pass, _ := v.Response(); !pass {
				c.log.Debugf("Fork %v trial %v recorded a non-linearizable history", i+1, j+1)
				return c.report(v, ro)
			}
		}
	}
	return c.report(checking.ParallelPass{Forks: c.forks, Trials: c.trials}, ro)
}

// Replay a single program.
//
// The program is executed once against a fresh target, without
// shrinking. Used to re-run a reported counterexample or to pin a known
// scenario as a regression test.
//
// The TargetOption is mandatory. All RunOptions are optional.
//
// Returns a checking.Verdict type containing the result of the check.
func (c Check[S]) Replay(p program.Program[S], target TargetOption, opts ...RunOption) checking.Verdict {
	ro := c.runConfig(target, opts)
	ro.setup()
	defer ro.teardown()

	res := c.execute(p, target, ro)
	if res.Ok {
		return c.report(checking.SequentialPass{Runs: 1}, ro)
	}
	v := checking.SequentialFailure[S]{
		Program: p,
		Step:    res.FailedStep,
		Act:     res.FailedAct,
		Resp:    res.Resp,
		Before:  res.Before,
		Runs:    1,
	}
	return c.report(v, ro)
}

// The run options of one check, with defaults filled in.
type runOpts struct {
	export   []io.Writer
	cleanup  func(any)
	setup    func()
	teardown func()
	wrap     func(any) any
}

func (c Check[S]) runConfig(target TargetOption, opts []RunOption) runOpts {
	if target.setup == nil {
		c.log.Panicf("A target must be provided to start the check")
	}

	ro := runOpts{
		cleanup:  func(any) {},
		setup:    func() {},
		teardown: func() {},
		wrap:     func(sut any) any { return sut },
	}
	for _, opt := range opts {
		switch t := opt.(type) {
		case config.ExportOption:
			ro.export = append(ro.export, t.W)
		case config.CleanupOption:
			ro.cleanup = t.Stop
		case config.SetupOption:
			ro.setup = t.Run
		case config.TeardownOption:
			ro.teardown = t.Run
		case config.WrapOption:
			ro.wrap = t.Wrap
		}
	}
	return ro
}

// execute runs the program against a fresh target. An error from the
// runner means the engine or the action vocabulary is defective, not
// that the property failed, so it interrupts the check.
func (c Check[S]) execute(p program.Program[S], target TargetOption, ro runOpts) *runner.Result[S] {
	sut := ro.wrap(target.setup())
	defer ro.cleanup(sut)
	res, err := runner.New(c.initial, c.ignorePanics).Run(p, sut)
	if err != nil {
		c.log.Panicf("Received an error while executing a program: %v", err)
	}
	return res
}

func (c Check[S]) executeTrial(exec *parallel.Executor[S], f program.Fork[S], target TargetOption, ro runOpts) *parallel.Trial[S] {
	sut := ro.wrap(target.setup())
	defer ro.cleanup(sut)
	trial, err := exec.RunTrial(f, sut)
	if err != nil {
		c.log.Panicf("Received an error while executing a fork: %v", err)
	}
	return trial
}

// shrink minimizes the failing program and builds the failure verdict.
// The minimized program is executed once more to recover the details of
// its failing step.
func (c Check[S]) shrink(p program.Program[S], res *runner.Result[S], target TargetOption, ro runOpts, runs int) checking.Verdict {
	small, shrunk := p, false
	if !c.noShrink {
		small = generator.Minimize(p, c.initial, func(candidate program.Program[S]) bool {
			return !c.execute(candidate, target, ro).Ok
		})
		shrunk = small.Len() < p.Len()
	}
	if shrunk {
		if r := c.execute(small, target, ro); !r.Ok {
			res = r
		} else {
			// The target does not fail deterministically. Report the
			// program that was observed failing.
			small, shrunk = p, false
		}
	}
	return checking.SequentialFailure[S]{
		Program: small,
		Shrunk:  shrunk,
		Step:    res.FailedStep,
		Act:     res.FailedAct,
		Resp:    res.Resp,
		Before:  res.Before,
		Runs:    runs,
	}
}

func (c Check[S]) report(v checking.Verdict, ro runOpts) checking.Verdict {
	for _, w := range ro.export {
		if err := v.Export(w); err != nil {
			c.log.Errorf("Failed to export the verdict: %v", err)
		}
	}
	return v
}
