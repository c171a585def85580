package checking

import (
	"fmt"

	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/history"
)

// The model is a single register holding a string.

type writeReg struct {
	val string
}

func (a writeReg) Precondition(string) bool      { return true }
func (a writeReg) Apply(_ string, _ any) string  { return a.val }
func (a writeReg) Check(_ string, resp any) bool { return resp == nil }
func (a writeReg) Run(any) (any, error)          { return nil, nil }
func (a writeReg) String() string                { return fmt.Sprintf("Write(%q)", a.val) }

type readReg struct{}

func (readReg) Precondition(string) bool      { return true }
func (readReg) Apply(s string, _ any) string  { return s }
func (readReg) Check(s string, resp any) bool { return resp == s }
func (readReg) Run(any) (any, error)          { return nil, nil }
func (readReg) String() string                { return "Read" }

// op returns the invoke and complete events of one operation.
func op(branch history.Branch, index int, act action.Action[string], resp any, inv, comp uint64) []history.Event[string] {
	return []history.Event[string]{
		{Kind: history.Invoke, Branch: branch, Index: index, Act: act, Time: inv},
		{Kind: history.Complete, Branch: branch, Index: index, Act: act, Resp: resp, Time: comp},
	}
}

// build flattens event groups into a history.
func build(groups ...[]history.Event[string]) history.History[string] {
	evts := []history.Event[string]{}
	for _, group := range groups {
		evts = append(evts, group...)
	}
	return history.FromEvents(evts)
}
