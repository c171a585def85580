package runner

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/abonie/quickcheck-state-machine/action"
)

// The system under test is a store of cells with server-assigned ids.
// The model maps the response that named a cell to its content, so it
// works unchanged whether the cell is named by a reference or by the
// concrete id.

type cellStore struct {
	next  int
	cells map[int]string

	// If true Read returns a wrong value.
	brokenRead bool
}

func newCellStore(broken bool) *cellStore {
	return &cellStore{cells: map[int]string{}, brokenRead: broken}
}

func (cs *cellStore) Alloc() int {
	id := cs.next
	cs.next++
	cs.cells[id] = ""
	return id
}

func (cs *cellStore) Write(id int, val string) error {
	if _, ok := cs.cells[id]; !ok {
		return errors.Errorf("cellStore: no cell %d", id)
	}
	cs.cells[id] = val
	return nil
}

func (cs *cellStore) Read(id int) (string, error) {
	val, ok := cs.cells[id]
	if !ok {
		return "", errors.Errorf("cellStore: no cell %d", id)
	}
	if cs.brokenRead {
		return val + "!", nil
	}
	return val, nil
}

type cellModel map[any]string

type allocAct struct{}

func (allocAct) Precondition(cellModel) bool { return true }

func (allocAct) Apply(m cellModel, resp any) cellModel {
	out := maps.Clone(m)
	out[resp] = ""
	return out
}

func (allocAct) Check(cellModel, any) bool { return true }

func (allocAct) Run(target any) (any, error) {
	return target.(*cellStore).Alloc(), nil
}

func (allocAct) String() string { return "Alloc" }

type writeAct struct {
	cell any
	val  string
}

func (a writeAct) Precondition(m cellModel) bool {
	_, ok := m[a.cell]
	return ok
}

func (a writeAct) Apply(m cellModel, _ any) cellModel {
	out := maps.Clone(m)
	out[a.cell] = a.val
	return out
}

func (a writeAct) Check(_ cellModel, resp any) bool { return resp == nil }

func (a writeAct) Run(target any) (any, error) {
	return nil, target.(*cellStore).Write(a.cell.(int), a.val)
}

func (a writeAct) String() string { return fmt.Sprintf("Write(%v, %q)", a.cell, a.val) }

func (a writeAct) MapRefs(f func(any) any) action.Action[cellModel] {
	return writeAct{cell: f(a.cell), val: a.val}
}

type readAct struct {
	cell any
}

func (a readAct) Precondition(m cellModel) bool {
	_, ok := m[a.cell]
	return ok
}

func (a readAct) Apply(m cellModel, _ any) cellModel { return m }

func (a readAct) Check(m cellModel, resp any) bool {
	return resp == m[a.cell]
}

func (a readAct) Run(target any) (any, error) {
	return target.(*cellStore).Read(a.cell.(int))
}

func (a readAct) String() string { return fmt.Sprintf("Read(%v)", a.cell) }

func (a readAct) MapRefs(f func(any) any) action.Action[cellModel] {
	return readAct{cell: f(a.cell)}
}

type panicAct struct{}

func (panicAct) Precondition(cellModel) bool            { return true }
func (panicAct) Apply(m cellModel, _ any) cellModel     { return m }
func (panicAct) Check(_ cellModel, resp any) bool       { return resp == nil }
func (panicAct) Run(any) (any, error)                   { panic("boom") }
func (panicAct) String() string                         { return "Panic" }

type falsePreAct struct{}

func (falsePreAct) Precondition(cellModel) bool        { return false }
func (falsePreAct) Apply(m cellModel, _ any) cellModel { return m }
func (falsePreAct) Check(cellModel, any) bool          { return true }
func (falsePreAct) Run(any) (any, error)               { return nil, nil }
func (falsePreAct) String() string                     { return "FalsePre" }
