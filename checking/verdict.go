package checking

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"

	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/history"
	"github.com/abonie/quickcheck-state-machine/program"
)

// A Verdict is the result of checking a property.
//
// Contains the outcome and enough context to diagnose a failure.
type Verdict interface {
	// Create a response.
	//
	// Returns a boolean that is true if the property holds, false
	// otherwise.
	// Returns a string describing the result. For failures it includes
	// the counterexample and the model state that rejected it.
	Response() (bool, string)

	// Export writes the description of the verdict to w.
	Export(w io.Writer) error
}

// Deterministic dump configuration shared by state keys and reports.
var dumpConf = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
}

// DefaultKey renders the model state to a deterministic string.
//
// Used to memoize the linearization search and to describe model states
// in verdicts. Map keys are sorted and pointer addresses are left out, so
// equal states render equally.
func DefaultKey[S any](state S) string {
	return dumpConf.Sdump(state)
}

// The property held for every run of a sequential check.
type SequentialPass struct {
	// Number of programs that were executed.
	Runs int
}

func (p SequentialPass) Response() (bool, string) {
	return true, fmt.Sprintf("All programs passed. Executed %v programs.", p.Runs)
}

func (p SequentialPass) Export(w io.Writer) error {
	_, desc := p.Response()
	_, err := fmt.Fprintln(w, desc)
	return err
}

// Every trial of every fork of a parallel check linearized.
type ParallelPass struct {
	// Number of forks that were generated and trials executed per fork.
	Forks  int
	Trials int
}

func (p ParallelPass) Response() (bool, string) {
	return true, fmt.Sprintf("All histories linearized. Executed %v forks with %v trials each.", p.Forks, p.Trials)
}

func (p ParallelPass) Export(w io.Writer) error {
	_, desc := p.Response()
	_, err := fmt.Fprintln(w, desc)
	return err
}

// A postcondition was violated while executing a program sequentially.
type SequentialFailure[S any] struct {
	// The failing program. If Shrunk is true this is the minimized
	// program, not the generated one.
	Program program.Program[S]
	Shrunk  bool

	// The failing step: its position, the action with references
	// resolved, the rejected response and the model state the action was
	// issued from.
	Step   int
	Act    action.Action[S]
	Resp   any
	Before S

	// Number of runs executed up to and including the failing one.
	Runs int
}

func (sf SequentialFailure[S]) Response() (bool, string) {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "Postcondition violated after %v runs.", sf.Runs)
	if sf.Shrunk {
		fmt.Fprintf(&buffer, " Shrunk to %v actions.", sf.Program.Len())
	}
	fmt.Fprintf(&buffer, " Program: \n")
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	for i, st := range sf.Program.Steps {
		marker := ""
		if i == sf.Step {
			marker = "<- postcondition violated"
		}
		fmt.Fprintf(wrt, "%v\t%v\n", st, marker)
	}
	wrt.Flush()
	fmt.Fprintf(&buffer, "Failing action: %v \nResponse: %v \nModel state before the action: \n%v", sf.Act, sf.Resp, dumpConf.Sdump(sf.Before))
	return false, buffer.String()
}

func (sf SequentialFailure[S]) Export(w io.Writer) error {
	_, desc := sf.Response()
	_, err := fmt.Fprintln(w, desc)
	return err
}

// The history of a trial linearized.
type linearizedVerdict[S any] struct {
	// One linearization of the history that the model accepts, prefix
	// operations first.
	witness []history.Operation[S]

	// Number of search states visited to find it.
	explored int
}

func (v linearizedVerdict[S]) Response() (bool, string) {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "The history linearizes. Explored %v interleavings. Witness: \n", v.explored)
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	for _, op := range v.witness {
		fmt.Fprintf(wrt, "-> %v \n", op)
	}
	wrt.Flush()
	return true, buffer.String()
}

func (v linearizedVerdict[S]) Export(w io.Writer) error {
	_, desc := v.Response()
	_, err := fmt.Fprintln(w, desc)
	return err
}

// No linearization of the history is accepted by the model.
type nonLinearizableVerdict[S any] struct {
	fork    program.Fork[S]
	history history.History[S]

	// The longest sequence of operations the model accepted, the state it
	// reached and the continuations that were rejected there.
	deepest  []history.Operation[S]
	state    S
	rejected []history.Operation[S]

	// Total number of operations in the history and search states
	// visited before giving up.
	total    int
	explored int
}

func (v nonLinearizableVerdict[S]) Response() (bool, string) {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "Non-linearizable history. Explored %v interleavings. Fork: \n%v\n", v.explored, v.fork)
	fmt.Fprintf(&buffer, "History: \n%v", v.history)
	fmt.Fprintf(&buffer, "Longest linearizable prefix (%v of %v operations): \n", len(v.deepest), v.total)
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	for _, op := range v.deepest {
		fmt.Fprintf(wrt, "-> %v \n", op)
	}
	wrt.Flush()
	fmt.Fprintf(&buffer, "Model state at this point: \n%v", dumpConf.Sdump(v.state))
	fmt.Fprintf(&buffer, "Rejected continuations: \n")
	wrt = tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	for _, op := range v.rejected {
		fmt.Fprintf(wrt, "-> %v \n", op)
	}
	wrt.Flush()
	return false, buffer.String()
}

func (v nonLinearizableVerdict[S]) Export(w io.Writer) error {
	_, desc := v.Response()
	_, err := fmt.Fprintln(w, desc)
	return err
}
