package generator

import (
	"fmt"
	"math/rand"

	"github.com/abonie/quickcheck-state-machine/action"
)

// Test vocabulary over a counter model. Inc is always valid, Dec requires
// a positive counter and Recall mentions the response of an earlier step.

type incAct struct{}

func (incAct) Precondition(int) bool  { return true }
func (incAct) Apply(s int, _ any) int { return s + 1 }
func (incAct) Check(int, any) bool    { return true }
func (incAct) Run(any) (any, error)   { return nil, nil }
func (incAct) String() string         { return "Inc" }

type decAct struct{}

func (decAct) Precondition(s int) bool { return s > 0 }
func (decAct) Apply(s int, _ any) int  { return s - 1 }
func (decAct) Check(int, any) bool     { return true }
func (decAct) Run(any) (any, error)    { return nil, nil }
func (decAct) String() string          { return "Dec" }

type recallAct struct {
	tok any
}

func (recallAct) Precondition(int) bool  { return true }
func (recallAct) Apply(s int, _ any) int { return s }
func (recallAct) Check(int, any) bool    { return true }
func (recallAct) Run(any) (any, error)   { return nil, nil }
func (a recallAct) String() string       { return fmt.Sprintf("Recall(%v)", a.tok) }

func (a recallAct) MapRefs(f func(any) any) action.Action[int] {
	return recallAct{tok: f(a.tok)}
}

// Draws uniformly between Inc and Dec.
func counterGen(rng *rand.Rand, _ int, _ action.Ref) action.Action[int] {
	if rng.Intn(2) == 0 {
		return incAct{}
	}
	return decAct{}
}
