package program

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/abonie/quickcheck-state-machine/action"
)

// A Fork is a program with two concurrent continuations.
//
// The prefix is executed sequentially. The two branches are then executed
// concurrently against the same target.
// Both branches may reference the responses of prefix steps. The branches
// bind references continuing after the prefix, each into its own
// branch-local environment, and never see each other's bindings.
type Fork[S any] struct {
	Prefix Program[S]
	Left   Program[S]
	Right  Program[S]
}

// Wellformed verifies the binding invariants of the fork: the prefix binds
// references from zero, both branches continue the numbering of the
// prefix, and every action only mentions references visible to its step.
func (f Fork[S]) Wellformed() error {
	if err := Wellformed(f.Prefix); err != nil {
		return err
	}
	if f.Prefix.Len() > 0 && f.Prefix.Steps[0].Ref != 0 {
		return errors.Wrapf(MalformedProgramError, "program: Fork prefix binds %v, expected &0", f.Prefix.Steps[0].Ref)
	}
	next := action.Ref(f.Prefix.Len())
	for _, branch := range []Program[S]{f.Left, f.Right} {
		if err := Wellformed(branch); err != nil {
			return err
		}
		if branch.Len() > 0 && branch.Steps[0].Ref != next {
			return errors.Wrapf(MalformedProgramError, "program: Fork branch binds %v, expected %v", branch.Steps[0].Ref, next)
		}
	}
	return nil
}

func (f Fork[S]) String() string {
	return fmt.Sprintf("prefix:\n%v\nleft:\n%v\nright:\n%v", f.Prefix, f.Left, f.Right)
}
