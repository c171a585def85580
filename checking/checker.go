package checking

import (
	"golang.org/x/exp/slices"

	"github.com/abonie/quickcheck-state-machine/history"
	"github.com/abonie/quickcheck-state-machine/program"
)

// Checks recorded histories for linearizability against the model.
//
// A history linearizes if its operations can be ordered into a sequence
// that respects real time, such that every response is accepted by the
// model when the operations are applied in that order. Real time is
// respected if an operation that completed before another was invoked
// also comes first in the sequence.
type Checker[S any] struct {
	initial S
	key     func(S) string
	memoize bool
}

// Create a new checker.
//
// initial is the model state the forks were generated from.
// key renders a model state to a string for memoization; if nil the
// DefaultKey is used. Memoization only prunes search states that were
// already explored without success, so it never changes the verdict.
func New[S any](initial S, key func(S) string, memoize bool) *Checker[S] {
	if key == nil {
		key = DefaultKey[S]
	}
	return &Checker[S]{
		initial: initial,
		key:     key,
		memoize: memoize,
	}
}

// Check searches for a linearization of the history.
//
// The prefix operations executed sequentially, so they are replayed
// as-is. The branch operations are interleaved by a depth first search
// over the two branch frontiers, constrained by real-time order and
// pruned on responses the model rejects.
func (c *Checker[S]) Check(f program.Fork[S], h history.History[S]) Verdict {
	prefix, left, right := h.ByBranch()

	s := &searcher[S]{
		left:    left,
		right:   right,
		key:     c.key,
		memoize: c.memoize,
		memo:    map[memoKey]bool{},
		deepest: -1,
	}

	// Replay the prefix. It is the forced head of every linearization.
	state := c.initial
	for _, op := range prefix {
		if !op.Act.Check(state, op.Resp) {
			s.noteRejected(state, op)
			return c.fail(f, h, s)
		}
		s.path = append(s.path, op)
		state = op.Act.Apply(state, op.Resp)
	}

	if s.search(state, 0, 0) {
		return linearizedVerdict[S]{
			witness:  slices.Clone(s.path),
			explored: s.explored,
		}
	}
	return c.fail(f, h, s)
}

func (c *Checker[S]) fail(f program.Fork[S], h history.History[S], s *searcher[S]) Verdict {
	return nonLinearizableVerdict[S]{
		fork:     f,
		history:  h,
		deepest:  s.deepPath,
		state:    s.deepState,
		rejected: s.deepRejected,
		total:    len(h.Operations()),
		explored: s.explored,
	}
}

type memoKey struct {
	i, j  int
	state string
}

// Depth first search for a linearization of the branch operations.
//
// A search state is the pair of branch frontiers together with the model
// state reached by the operations linearized so far. Whenever operations
// remain, at least one frontier operation is schedulable: two frontier
// operations cannot both have completed before the other was invoked.
// Dead ends are therefore always caused by the model rejecting a
// response.
type searcher[S any] struct {
	left, right []history.Operation[S]

	key     func(S) string
	memoize bool
	memo    map[memoKey]bool

	// Operations linearized so far, prefix included.
	path []history.Operation[S]

	// The deepest point the search reached, for reporting: the path, the
	// model state and the operations rejected there.
	deepest      int
	deepPath     []history.Operation[S]
	deepState    S
	deepRejected []history.Operation[S]

	// Number of search states visited.
	explored int
}

func (s *searcher[S]) search(state S, i, j int) bool {
	s.explored++
	if i == len(s.left) && j == len(s.right) {
		return true
	}

	var k memoKey
	if s.memoize {
		k = memoKey{i: i, j: j, state: s.key(state)}
		if s.memo[k] {
			return false
		}
	}

	if i < len(s.left) && s.schedulable(s.left[i], s.right, j) {
		if s.try(state, s.left[i], i+1, j) {
			return true
		}
	}
	if j < len(s.right) && s.schedulable(s.right[j], s.left, i) {
		if s.try(state, s.right[j], i, j+1) {
			return true
		}
	}

	if s.memoize {
		s.memo[k] = true
	}
	return false
}

// schedulable reports whether op may be linearized next.
//
// It may not if an unscheduled operation of the other branch completed
// before op was invoked. Only the frontier operation of the other branch
// has to be inspected: operations behind it completed even later.
func (s *searcher[S]) schedulable(op history.Operation[S], other []history.Operation[S], oi int) bool {
	return oi >= len(other) || !other[oi].Before(op)
}

// try linearizes op next if the model accepts its response and continues
// the search from the advanced state.
func (s *searcher[S]) try(state S, op history.Operation[S], ni, nj int) bool {
	if !op.Act.Check(state, op.Resp) {
		s.noteRejected(state, op)
		return false
	}
	s.path = append(s.path, op)
	if s.search(op.Act.Apply(state, op.Resp), ni, nj) {
		return true
	}
	s.path = s.path[:len(s.path)-1]
	return false
}

// noteRejected records a rejected operation for the report, keeping the
// rejections at the deepest point the search reached.
func (s *searcher[S]) noteRejected(state S, op history.Operation[S]) {
	depth := len(s.path)
	if depth > s.deepest {
		s.deepest = depth
		s.deepPath = slices.Clone(s.path)
		s.deepState = state
		s.deepRejected = nil
	}
	if depth == s.deepest {
		dup := slices.ContainsFunc(s.deepRejected, func(o history.Operation[S]) bool {
			return o.Branch == op.Branch && o.Index == op.Index
		})
		if !dup {
			s.deepRejected = append(s.deepRejected, op)
		}
	}
}
