package simclock

import (
	"container/heap"
	"time"
)

// Manual is a virtual Scheduler. Time only moves on Advance, which fires due
// callbacks in deadline order on the caller's goroutine.
type Manual struct {
	now    time.Time
	seq    uint64
	timers manualHeap
}

// NewManual starts virtual time at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, fn: fn, index: -1}
	heap.Push(&m.timers, t)
	return t
}

// Advance moves time forward by d, firing every callback due on the way,
// including ones scheduled by earlier callbacks.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for len(m.timers) > 0 {
		next := m.timers[0]
		if next.at.After(target) {
			break
		}
		heap.Pop(&m.timers)
		if next.stopped {
			continue
		}
		next.stopped = true
		if next.at.After(m.now) {
			m.now = next.at
		}
		next.fn()
	}
	m.now = target
}

// Pending counts callbacks that are scheduled and not stopped.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type manualTimer struct {
	at      time.Time
	seq     uint64
	fn      func()
	stopped bool
	index   int
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type manualHeap []*manualTimer

func (h manualHeap) Len() int { return len(h) }

func (h manualHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h manualHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *manualHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *manualHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
