package generator

import (
	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/program"
)

// Candidates returns smaller variants of the program that are still valid
// from the given state.
//
// Larger cuts are tried first: halves, then quarters, down to single
// steps. Dropping a step also drops every step that references its
// response, directly or transitively, and the references of the surviving
// steps are renumbered to stay dense.
func Candidates[S any](p program.Program[S], initial S) []program.Program[S] {
	n := p.Len()
	if n == 0 {
		return nil
	}
	out := []program.Program[S]{}
	for size := n / 2; size >= 1; size /= 2 {
		for start := 0; start < n; start += size {
			drop := map[int]bool{}
			for i := start; i < start+size && i < n; i++ {
				drop[i] = true
			}
			cand := remove(p, dependents(p, drop))
			if cand.Len() == 0 {
				continue
			}
			if program.Valid(cand, initial) {
				out = append(out, cand)
			}
		}
	}
	return out
}

// Minimize shrinks a failing program until no smaller candidate fails.
//
// fails must report whether the property fails for a candidate program.
// Every round keeps the first failing candidate and starts over, so the
// result is a local minimum: removing any further candidate set makes the
// failure disappear.
func Minimize[S any](p program.Program[S], initial S, fails func(program.Program[S]) bool) program.Program[S] {
	cur := p
	for {
		shrunk := false
		for _, cand := range Candidates(cur, initial) {
			if fails(cand) {
				cur = cand
				shrunk = true
				break
			}
		}
		if !shrunk {
			return cur
		}
	}
}

// dependents extends the drop set with every step that references a
// dropped step. References always point backwards, so one forward pass
// reaches the transitive closure.
func dependents[S any](p program.Program[S], drop map[int]bool) map[int]bool {
	for i, st := range p.Steps {
		if drop[i] {
			continue
		}
		for _, r := range action.Refs(st.Act) {
			if drop[int(r)] {
				drop[i] = true
				break
			}
		}
	}
	return drop
}

// remove returns the program without the dropped steps, with the
// references of the surviving steps renumbered to stay dense.
func remove[S any](p program.Program[S], drop map[int]bool) program.Program[S] {
	mapping := map[action.Ref]action.Ref{}
	steps := []program.Step[S]{}
	for i, st := range p.Steps {
		if drop[i] {
			continue
		}
		ref := action.Ref(len(steps))
		mapping[st.Ref] = ref
		steps = append(steps, program.Step[S]{Ref: ref, Act: action.Renumber(st.Act, mapping)})
	}
	return program.Program[S]{Steps: steps}
}
