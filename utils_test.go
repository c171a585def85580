package qsm

import (
	"math/rand"
	"sync"
	"time"

	"github.com/abonie/quickcheck-state-machine/action"
)

// Counters used as targets. The model of a counter is the number of
// increments, stored as an int.

type counterTarget interface {
	inc() int
	get() int
}

type counter struct{ n int }

func (c *counter) inc() int { c.n++; return c.n }
func (c *counter) get() int { return c.n }

// Stops counting after two increments.
type saturatingCounter struct{ n int }

func (c *saturatingCounter) inc() int {
	if c.n < 2 {
		c.n++
	}
	return c.n
}

func (c *saturatingCounter) get() int { return c.n }

// Safe for concurrent use.
type safeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *safeCounter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *safeCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Increments in two critical sections. Concurrent increments can lose
// updates, which no ordering of the increments explains.
type racyCounter struct {
	mu sync.Mutex
	n  int
}

func (c *racyCounter) inc() int {
	c.mu.Lock()
	n := c.n
	c.mu.Unlock()

	time.Sleep(time.Millisecond)

	c.mu.Lock()
	c.n = n + 1
	c.mu.Unlock()
	return n + 1
}

func (c *racyCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Counts the calls that pass through it on the way to the inner counter.
type meteredCounter struct {
	inner counterTarget
	calls *int
}

func (m meteredCounter) inc() int { *m.calls++; return m.inner.inc() }
func (m meteredCounter) get() int { *m.calls++; return m.inner.get() }

type incAct struct{}

func (incAct) Precondition(int) bool          { return true }
func (incAct) Apply(state int, resp any) int  { return state + 1 }
func (incAct) Check(state int, resp any) bool { return resp == state+1 }
func (incAct) Run(target any) (any, error)    { return target.(counterTarget).inc(), nil }
func (incAct) String() string                 { return "Inc" }

type getAct struct{}

func (getAct) Precondition(int) bool          { return true }
func (getAct) Apply(state int, resp any) int  { return state }
func (getAct) Check(state int, resp any) bool { return resp == state }
func (getAct) Run(target any) (any, error)    { return target.(counterTarget).get(), nil }
func (getAct) String() string                 { return "Get" }

type panicAct struct{}

func (panicAct) Precondition(int) bool          { return true }
func (panicAct) Apply(state int, resp any) int  { return state }
func (panicAct) Check(state int, resp any) bool { _, failed := resp.(error); return !failed }
func (panicAct) Run(target any) (any, error)    { panic("counter exploded") }
func (panicAct) String() string                 { return "Panic" }

func counterGen(rng *rand.Rand, state int, next action.Ref) action.Action[int] {
	if rng.Intn(2) == 0 {
		return incAct{}
	}
	return getAct{}
}

func incGen(rng *rand.Rand, state int, next action.Ref) action.Action[int] {
	return incAct{}
}

// Starts every program with a read, so failing programs are never minimal.
func getThenIncGen(rng *rand.Rand, state int, next action.Ref) action.Action[int] {
	if next == 0 {
		return getAct{}
	}
	return incAct{}
}

func panicGen(rng *rand.Rand, state int, next action.Ref) action.Action[int] {
	return panicAct{}
}
