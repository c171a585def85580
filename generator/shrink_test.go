package generator

import (
	"strings"
	"testing"

	"github.com/abonie/quickcheck-state-machine/action"
	"github.com/abonie/quickcheck-state-machine/program"
)

func TestCandidatesAreValidAndSmaller(t *testing.T) {
	p := program.New[int](incAct{}, incAct{}, decAct{}, decAct{}, incAct{})
	for _, cand := range Candidates(p, 0) {
		if cand.Len() == 0 || cand.Len() >= p.Len() {
			t.Errorf("Expected a smaller non-empty candidate. Got: %v actions", cand.Len())
		}
		if !program.Valid(cand, 0) {
			t.Errorf("Expected every candidate to be valid. Got:\n%v", cand)
		}
		if err := program.Wellformed(cand); err != nil {
			t.Errorf("Did not expect to receive an error. Got: %v", err)
		}
	}
}

func TestCandidatesDropDependentSteps(t *testing.T) {
	p := program.New[int](incAct{}, recallAct{tok: action.Ref(0)}, incAct{})
	for _, cand := range Candidates(p, 0) {
		state := 0
		bound := map[action.Ref]bool{}
		for _, st := range cand.Steps {
			for _, r := range action.Refs(st.Act) {
				if !bound[r] {
					t.Errorf("Expected dependent steps to be dropped with their reference. Got:\n%v", cand)
				}
			}
			bound[st.Ref] = true
			state = st.Act.Apply(state, st.Ref)
		}
	}
}

func TestCandidatesRenumberRefs(t *testing.T) {
	p := program.New[int](incAct{}, incAct{}, recallAct{tok: action.Ref(1)})
	want := "&0 <- Inc\n&1 <- Recall(&0)"
	found := false
	for _, cand := range Candidates(p, 0) {
		if cand.String() == want {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a candidate with renumbered references:\n%v", want)
	}
}

func TestMinimizeFindsLocalMinimum(t *testing.T) {
	p := program.New[int](incAct{}, incAct{}, decAct{}, incAct{}, decAct{}, incAct{}, incAct{})

	// The property fails whenever the program contains at least two Incs.
	fails := func(cand program.Program[int]) bool {
		return strings.Count(cand.String(), "Inc") >= 2
	}

	min := Minimize(p, 0, fails)
	if min.Len() != 2 {
		t.Errorf("Expected the minimal failing program to have 2 actions. Got:\n%v", min)
	}
	if !fails(min) {
		t.Errorf("Expected the minimized program to still fail. Got:\n%v", min)
	}
}

func TestMinimizeKeepsUnshrinkableProgram(t *testing.T) {
	p := program.New[int](incAct{})
	min := Minimize(p, 0, func(program.Program[int]) bool { return true })
	if min.String() != p.String() {
		t.Errorf("Expected the program to be unshrinkable. Got:\n%v", min)
	}
}
