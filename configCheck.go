package qsm

import (
	"io"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/config"
	"github.com/abonie/quickcheck-state-machine/generator"
)

// Prepare a check with initial configuration.
//
// Initializes the check with the necessary parameters.
// See the CheckOptions for a full overview of possible options.
// Default values will be used if no value is provided.
func PrepareCheck[S any](gen GeneratorOption[S], initial S, opts ...CheckOption) Check[S] {
	var (
		// Number of sequential runs executed
		runs = 100

		// Maximum number of actions in a generated program
		maxActions = 40

		// Number of actions in the sequential prefix of a fork
		prefixActions = 8

		// Number of actions in each concurrent branch of a fork
		branchActions = 4

		// Number of forks generated by a parallel check
		forks = 50

		// Number of times each fork is executed
		trials = 10

		// Seed of the random generator. Checks with the same seed generate the same programs.
		seed = time.Now().UnixNano()

		// If true failing programs are reported as generated, without shrinking
		noShrink = false

		// If true panics raised by actions are not recovered and stop the check
		ignorePanics = false

		// If true the check logs progress
		verbose = false

		// Keys model states during the linearizability search
		key func(S) string
	)

	// Use the check options to configure
	for _, opt := range opts {
		switch t := opt.(type) {
		case config.RunsOption:
			runs = t.Runs
		case config.MaxActionsOption:
			maxActions = t.N
		case config.PrefixActionsOption:
			prefixActions = t.N
		case config.BranchActionsOption:
			branchActions = t.N
		case config.ForksOption:
			forks = t.N
		case config.TrialsOption:
			trials = t.N
		case config.SeedOption:
			seed = t.Seed
		case config.NoShrinkOption:
			noShrink = true
		case config.IgnorePanicsOption:
			ignorePanics = true
		case config.VerboseOption:
			verbose = true
		case config.StateKeyOption[S]:
			key = t.Key
		}
	}

	logger := log.New()
	logger.Formatter = &log.TextFormatter{FullTimestamp: true}
	if verbose {
		logger.Level = log.DebugLevel
	}
	entry := logger.WithField("check", uuid.New().String()[:8])

	if gen.g == nil {
		entry.Panicf("A generator must be provided to prepare the check")
	}

	return Check[S]{
		gen:           gen.g,
		initial:       initial,
		runs:          runs,
		maxActions:    maxActions,
		prefixActions: prefixActions,
		branchActions: branchActions,
		forks:         forks,
		trials:        trials,
		seed:          seed,
		key:           key,
		noShrink:      noShrink,
		ignorePanics:  ignorePanics,
		log:           entry,
	}
}

// A option used to configure the check
type CheckOption interface {
	// noop method
	CheckOpt()
}

// Configure the number of sequential runs executed.
//
// Each run generates and executes one program.
//
// Default value is 100.
func Runs(runs int) CheckOption {
	return config.RunsOption{Runs: runs}
}

// Configure the maximum number of actions in a generated program.
//
// The length of each program is drawn uniformly between 1 and the maximum.
//
// Default value is 40.
func MaxActions(n int) CheckOption {
	return config.MaxActionsOption{N: n}
}

// Configure the number of actions in the sequential prefix of a fork.
//
// The prefix moves the system into an interesting state before the
// branches race.
//
// Default value is 8.
func PrefixActions(n int) CheckOption {
	return config.PrefixActionsOption{N: n}
}

// Configure the number of actions in each concurrent branch of a fork.
//
// The linearizability search is exponential in the branch length, so
// branches should stay short.
//
// Default value is 4.
func BranchActions(n int) CheckOption {
	return config.BranchActionsOption{N: n}
}

// Configure the number of forks generated by a parallel check.
//
// Default value is 50.
func Forks(n int) CheckOption {
	return config.ForksOption{N: n}
}

// Configure how often each fork is executed.
//
// The scheduler interleaves the branches differently between executions,
// so a single fork is worth running several times.
//
// Default value is 10.
func Trials(n int) CheckOption {
	return config.TrialsOption{N: n}
}

// Configure the seed of the random generator.
//
// Checks with the same seed generate the same programs.
//
// Default value is the current time.
func Seed(seed int64) CheckOption {
	return config.SeedOption{Seed: seed}
}

// Disable shrinking of failing programs.
//
// The counterexample is reported exactly as generated.
func NoShrink() CheckOption {
	return config.NoShrinkOption{}
}

// Set the ignorePanics flag to true.
//
// If true panics raised by actions are not recovered, stopping the check.
// If false the panic is caught and delivered to the postcondition as the
// response.
// Ignoring the panic will make it easier to troubleshoot the error since
// you can use the debugger to inspect the state when it panics.
func IgnorePanics() CheckOption {
	return config.IgnorePanicsOption{}
}

// Configure the check to log progress.
func Verbose() CheckOption {
	return config.VerboseOption{}
}

// Configure the function used to key model states during the
// linearizability search.
//
// States with equal keys are treated as equal when memoizing explored
// search states. The key must be deterministic.
//
// Default value is a deterministic dump of the state.
func WithStateKey[S any](key func(S) string) CheckOption {
	return config.StateKeyOption[S]{Key: key}
}

// Optional parameters used to configure a check
type RunOption interface {
	RunOpt()
}

// Add a writer that the verdict will be exported to
//
// Can be called multiple times.
// Default value is no writers
func Export(w io.Writer) RunOption {
	return config.ExportOption{W: w}
}

// Configure a function used to shut down the system under test after a
// run.
//
// The function should release any resources held by the target to avoid
// leaks across runs.
//
// Default value is empty function.
func WithCleanup(stop func(any)) RunOption {
	return config.CleanupOption{Stop: stop}
}

// Configure a function that is run once before the first run of the
// check.
//
// Used together with WithTeardown to start and stop infrastructure that
// outlives the individual runs.
//
// Default value is empty function.
func WithSetup(f func()) RunOption {
	return config.SetupOption{Run: f}
}

// Configure a function that is run once after the check has finished.
//
// Default value is empty function.
func WithTeardown(f func()) RunOption {
	return config.TeardownOption{Run: f}
}

// Configure a function that wraps every fresh target before actions are
// issued against it.
//
// Used to hand the actions a resource derived from the target, such as a
// client connected to a started server. The wrapped value is what Run and
// the cleanup function receive.
//
// Default value is the identity function.
func WithTargetWrapper(wrap func(any) any) RunOption {
	return config.WrapOption{Wrap: wrap}
}

// Configures the generator used to build programs.
//
// The generator proposes candidate actions for each model state.
type GeneratorOption[S any] struct {
	g generator.Generator[S]
}

// Use the provided generator.
func WithGenerator[S any](g generator.Generator[S]) GeneratorOption[S] {
	return GeneratorOption[S]{g: g}
}

// Use the provided function f as the generator.
func WithGeneratorFunc[S any](f func(rng *rand.Rand, state S, next action.Ref) action.Action[S]) GeneratorOption[S] {
	return GeneratorOption[S]{g: generator.Func[S](f)}
}

// Configures how the system under test is started.
//
// The function is called before every run and should return a fresh
// target. State leaking between runs makes counterexamples unreliable.
type TargetOption struct {
	setup func() any
}

// Uses the provided function f to create the target.
func WithTarget(f func() any) TargetOption {
	return TargetOption{setup: f}
}
