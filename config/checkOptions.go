package config

// Configures the number of sequential runs

// Each run generates and executes one program.
// Default value is 100
type RunsOption struct{ Runs int }

func (ro RunsOption) CheckOpt() {}

// Configures the maximum number of actions in a generated program

// The length of each program is drawn uniformly between 1 and the maximum.
// Default value is 40
type MaxActionsOption struct{ N int }

func (mao MaxActionsOption) CheckOpt() {}

// Configures the number of actions in the sequential prefix of a fork

// Default value is 8
type PrefixActionsOption struct{ N int }

func (pao PrefixActionsOption) CheckOpt() {}

// Configures the number of actions in each concurrent branch of a fork

// Default value is 4
type BranchActionsOption struct{ N int }

func (bao BranchActionsOption) CheckOpt() {}

// Configures the number of forks generated by a parallel check

// Default value is 50
type ForksOption struct{ N int }

func (fo ForksOption) CheckOpt() {}

// Configures how often each fork is executed

// Interleavings vary between executions, so a single fork is worth
// running several times.
// Default value is 10
type TrialsOption struct{ N int }

func (to TrialsOption) CheckOpt() {}

// Configures the seed of the random generator

// Runs with the same seed generate the same programs.
// Default value is the current time
type SeedOption struct{ Seed int64 }

func (so SeedOption) CheckOpt() {}

// Disables shrinking of failing programs

// The counterexample is reported exactly as generated.
// Default value is false
type NoShrinkOption struct{}

func (nso NoShrinkOption) CheckOpt() {}

// Configures panics raised by actions to not be recovered

// If set a panicking action stops the check and the panic propagates,
// so the debugger can inspect the state at the point of the panic.
// If not set the panic is caught and delivered to the postcondition as
// the response.
type IgnorePanicsOption struct{}

func (ipo IgnorePanicsOption) CheckOpt() {}

// Configures the check to log progress

// Default value is false
type VerboseOption struct{}

func (vo VerboseOption) CheckOpt() {}

// Configures the function used to key model states during the
// linearizability search

// States with equal keys are treated as equal when memoizing explored
// search states.
// Default value is a deterministic dump of the state.
type StateKeyOption[S any] struct {
	Key func(S) string
}

func (sko StateKeyOption[S]) CheckOpt() {}
