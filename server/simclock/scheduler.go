// Package simclock drives the simulation: a cancellable timer abstraction, a
// single-goroutine event loop that every session shares, a virtual scheduler
// for tests and the fixed-timestep accumulator clock.
package simclock

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the timer
	// was still pending.
	Stop() bool
}

// Scheduler runs callbacks after a delay. Implementations run every callback
// on one logical thread, so callbacks never race each other.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Group is a Scheduler that remembers its pending timers so they can all be
// cancelled at once. A stopped group refuses new timers.
type Group struct {
	sched   Scheduler
	pending map[*groupTimer]struct{}
	stopped bool
}

// NewGroup wraps s.
func NewGroup(s Scheduler) *Group {
	return &Group{sched: s, pending: make(map[*groupTimer]struct{})}
}

type groupTimer struct {
	group *Group
	inner Timer
	done  bool
}

func (t *groupTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	delete(t.group.pending, t)
	return t.inner.Stop()
}

func (g *Group) Now() time.Time {
	return g.sched.Now()
}

func (g *Group) AfterFunc(d time.Duration, fn func()) Timer {
	t := &groupTimer{group: g}
	if g.stopped {
		t.done = true
		t.inner = stoppedTimer{}
		return t
	}
	g.pending[t] = struct{}{}
	t.inner = g.sched.AfterFunc(d, func() {
		if t.done {
			return
		}
		t.done = true
		delete(g.pending, t)
		fn()
	})
	return t
}

// Pending is the number of timers that have neither fired nor been stopped.
func (g *Group) Pending() int {
	return len(g.pending)
}

// Stop cancels every pending timer and refuses new ones.
func (g *Group) Stop() {
	g.stopped = true
	for t := range g.pending {
		t.Stop()
	}
}

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return false }
