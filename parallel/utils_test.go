package parallel

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/abonie/quickcheck-state-machine/action"
)

// The system under test is a concurrency-safe store of cells with
// server-assigned ids. The model maps the response that named a cell to
// its content.

type lockStore struct {
	mu    sync.Mutex
	next  int
	cells map[int]string

	// If true Read returns a wrong value.
	brokenRead bool
}

func newLockStore(broken bool) *lockStore {
	return &lockStore{cells: map[int]string{}, brokenRead: broken}
}

func (ls *lockStore) Alloc() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	id := ls.next
	ls.next++
	ls.cells[id] = ""
	return id
}

func (ls *lockStore) Write(id int, val string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if _, ok := ls.cells[id]; !ok {
		return errors.Errorf("lockStore: no cell %d", id)
	}
	ls.cells[id] = val
	return nil
}

func (ls *lockStore) Read(id int) (string, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	val, ok := ls.cells[id]
	if !ok {
		return "", errors.Errorf("lockStore: no cell %d", id)
	}
	if ls.brokenRead {
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
	return target.(*lockStore).Alloc(), nil
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
	return nil, target.(*lockStore).Write(a.cell.(int), a.val)
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
	return target.(*lockStore).Read(a.cell.(int))
}

func (a readAct) String() string { return fmt.Sprintf("Read(%v)", a.cell) }

func (a readAct) MapRefs(f func(any) any) action.Action[cellModel] {
	return readAct{cell: f(a.cell)}
}

type panicAct struct{}

func (panicAct) Precondition(cellModel) bool        { return true }
func (panicAct) Apply(m cellModel, _ any) cellModel { return m }
func (panicAct) Check(_ cellModel, resp any) bool   { return resp == nil }
func (panicAct) Run(any) (any, error)               { panic("boom") }
func (panicAct) String() string                     { return "Panic" }
