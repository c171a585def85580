package history

import (
	"bytes"
	"fmt"
	"math"
	"text/tabwriter"

	"golang.org/x/exp/slices"

	"github.com/abonie/quickcheck-state-machine/action"
)

// The kind of an event: the start or the end of an operation.
type Kind int

const (
	Invoke Kind = iota
	Complete
)

func (k Kind) String() string {
	switch k {
	case Invoke:
		return "invoke"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// The part of the fork an operation belongs to.
type Branch int

const (
	Prefix Branch = iota
	Left
	Right
)

func (b Branch) String() string {
	switch b {
	case Prefix:
		return "prefix"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("branch(%d)", int(b))
}

// An Event records the start or the end of one operation of a trial.
//
// Time is a tick drawn from a counter shared by all events of the trial,
// so events are totally ordered and an operation completed before another
// was invoked exactly if its Complete tick is smaller than the other's
// Invoke tick.
type Event[S any] struct {
	Kind   Kind
	Branch Branch
	// Position of the step within its branch.
	Index int
	Ref   action.Ref
	// The action with references resolved against the environment of its
	// branch.
	Act action.Action[S]
	// The observed response. Only set on Complete events.
	Resp any
	Time uint64
}

func (e Event[S]) String() string {
	if e.Kind == Complete {
		return fmt.Sprintf("[%v] %v %v[%v] %v = %v", e.Time, e.Kind, e.Branch, e.Index, e.Act, e.Resp)
	}
	return fmt.Sprintf("[%v] %v %v[%v] %v", e.Time, e.Kind, e.Branch, e.Index, e.Act)
}

// A History is the ordered record of the events of one trial.
type History[S any] struct {
	Events []Event[S]
}

// Create a history from events, ordered by time.
func FromEvents[S any](evts []Event[S]) History[S] {
	sorted := slices.Clone(evts)
	slices.SortFunc(sorted, func(a, b Event[S]) bool { return a.Time < b.Time })
	return History[S]{Events: sorted}
}

func (h History[S]) String() string {
	var buffer bytes.Buffer
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	for _, evt := range h.Events {
		if evt.Kind == Complete {
			fmt.Fprintf(wrt, "%v\t%v\t%v[%v]\t%v\t= %v\n", evt.Time, evt.Kind, evt.Branch, evt.Index, evt.Act, evt.Resp)
		} else {
			fmt.Fprintf(wrt, "%v\t%v\t%v[%v]\t%v\t\n", evt.Time, evt.Kind, evt.Branch, evt.Index, evt.Act)
		}
	}
	wrt.Flush()
	return buffer.String()
}

// An Operation pairs the invoke and complete events of one step.
type Operation[S any] struct {
	Branch Branch
	Index  int
	Ref    action.Ref
	Act    action.Action[S]
	Resp   any
	// The ticks of the invoke and complete events.
	Invoked   uint64
	Completed uint64
}

// Before reports whether o completed before other was invoked.
// Operations that are not ordered by Before in either direction were
// concurrent in real time.
func (o Operation[S]) Before(other Operation[S]) bool {
	return o.Completed < other.Invoked
}

func (o Operation[S]) String() string {
	return fmt.Sprintf("%v[%v] %v <- %v = %v", o.Branch, o.Index, o.Ref, o.Act, o.Resp)
}

// Operations pairs the events of the history into operations, ordered by
// invocation time.
//
// An operation whose complete event is missing is treated as never having
// completed: it stays concurrent with everything invoked after it.
func (h History[S]) Operations() []Operation[S] {
	type key struct {
		branch Branch
		index  int
	}
	ops := map[key]*Operation[S]{}
	order := []key{}
	for _, evt := range h.Events {
		k := key{evt.Branch, evt.Index}
		op, ok := ops[k]
		if !ok {
			op = &Operation[S]{
				Branch:    evt.Branch,
				Index:     evt.Index,
				Ref:       evt.Ref,
				Act:       evt.Act,
				Completed: math.MaxUint64,
			}
			ops[k] = op
			order = append(order, k)
		}
		switch evt.Kind {
		case Invoke:
			op.Invoked = evt.Time
		case Complete:
			op.Completed = evt.Time
			op.Resp = evt.Resp
		}
	}
	out := make([]Operation[S], 0, len(order))
	for _, k := range order {
		out = append(out, *ops[k])
	}
	slices.SortFunc(out, func(a, b Operation[S]) bool { return a.Invoked < b.Invoked })
	return out
}

// ByBranch splits the paired operations of the history by branch, each
// ordered by index.
func (h History[S]) ByBranch() (prefix, left, right []Operation[S]) {
	for _, op := range h.Operations() {
		switch op.Branch {
		case Prefix:
			prefix = append(prefix, op)
		case Left:
			left = append(left, op)
		case Right:
			right = append(right, op)
		}
	}
	for _, ops := range [][]Operation[S]{prefix, left, right} {
		slices.SortFunc(ops, func(a, b Operation[S]) bool { return a.Index < b.Index })
	}
	return prefix, left, right
}
