package config

import "io"

// Configures io.writers that the verdict will be exported to

// Can be applied multiple times to add multiple io.writers.
// Default value is no writers.
type ExportOption struct {
	W io.Writer
}

func (eo ExportOption) RunOpt() {}

// Configures a function to shut down the system under test after a run.

// The function should release any resources held by the target to avoid
// leaks across runs.
// Default value is an empty function.
type CleanupOption struct {
	Stop func(any)
}

func (co CleanupOption) RunOpt() {}

// Configures a function that is run once before the first run of a check

// Default value is an empty function.
type SetupOption struct {
	Run func()
}

func (so SetupOption) RunOpt() {}

// Configures a function that is run once after the last run of a check

// Default value is an empty function.
type TeardownOption struct {
	Run func()
}

func (to TeardownOption) RunOpt() {}

// Configures a function that wraps every fresh target before actions are
// issued against it

// The wrapped value is what the actions and the cleanup function receive.
// Default value is the identity function.
type WrapOption struct {
	Wrap func(any) any
}

func (wo WrapOption) RunOpt() {}
