package network

import (
	"sync"
	"time"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// intervalSmoothing weights each new update interval in the running estimate.
const intervalSmoothing = 0.1

// Entity is the client's copy of one actor.
type Entity struct {
	Actor     netcomponents.NetActorData
	Transform netcomponents.NetTransformData
	Flags     netcomponents.NetFlagsData
}

// Snapshot is the merged state after one patch.
type Snapshot struct {
	Tick     uint64
	Entities map[netconfig.ActorID]Entity
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Tick: s.Tick, Entities: make(map[netconfig.ActorID]Entity, len(s.Entities))}
	for id, e := range s.Entities {
		out.Entities[id] = e
	}
	return out
}

// StateBuffer keeps the two most recent snapshots and blends between them
// for presentation. It never extrapolates past the latest snapshot.
// Safe for concurrent use: patches arrive on the network goroutine while
// frames sample from the game loop.
type StateBuffer struct {
	mu sync.Mutex

	prev, cur Snapshot
	snap      map[netconfig.ActorID]bool // patched in a non-interpolated update

	prevAdjusted float64 // ms
	curAdjusted  float64
	interval     float64
	received     int
}

func NewStateBuffer() *StateBuffer {
	return &StateBuffer{
		prev:     Snapshot{Entities: make(map[netconfig.ActorID]Entity)},
		cur:      Snapshot{Entities: make(map[netconfig.ActorID]Entity)},
		snap:     make(map[netconfig.ActorID]bool),
		interval: float64(config.FixedDt()) / float64(time.Millisecond),
	}
}

// Add inserts an actor in both snapshots so it appears at rest.
func (b *StateBuffer) Add(msg messages.ActorAdded) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := Entity{Actor: msg.Actor, Transform: msg.Transform, Flags: msg.Flags}
	b.prev.Entities[msg.Actor.ID] = e
	b.cur.Entities[msg.Actor.ID] = e
}

func (b *StateBuffer) Remove(msg messages.ActorRemoved) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.prev.Entities, msg.ID)
	delete(b.cur.Entities, msg.ID)
	delete(b.snap, msg.ID)
}

// SetFlags replaces an actor's flags in the current snapshot.
func (b *StateBuffer) SetFlags(msg messages.FlagUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.cur.Entities[msg.ID]
	if !ok {
		return
	}
	e.Flags = msg.Flags
	b.cur.Entities[msg.ID] = e
}

// Apply merges a patch received at receipt. The current snapshot becomes
// the previous one.
func (b *StateBuffer) Apply(p messages.StatePatch, receipt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sent := float64(p.Timestamp)
	latency := (float64(receipt.UnixMilli()) - sent) / 2
	adjusted := sent + latency

	if b.received > 0 {
		if gap := adjusted - b.curAdjusted; gap > 0 {
			b.interval += (gap - b.interval) * intervalSmoothing
		}
	}
	b.received++
	b.prevAdjusted, b.curAdjusted = b.curAdjusted, adjusted
	if b.received == 1 {
		b.prevAdjusted = adjusted
	}

	b.prev = b.cur
	b.cur = b.prev.clone()
	b.cur.Tick = p.Tick
	clear(b.snap)
	for _, patch := range p.Patches {
		e, ok := b.cur.Entities[patch.ID]
		if !ok {
			continue
		}
		e.Transform = patch.Apply(e.Transform)
		b.cur.Entities[patch.ID] = e
		if p.NonInterpolated {
			b.snap[patch.ID] = true
		}
	}
}

// Alpha is the blend factor between the previous and current snapshot at
// now, clamped to [0, 1].
func (b *StateBuffer) Alpha(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alpha(now)
}

func (b *StateBuffer) alpha(now time.Time) float64 {
	if b.received < 2 || b.interval <= 0 {
		return 1
	}
	a := (float64(now.UnixMilli()) - b.prevAdjusted) / b.interval
	switch {
	case a < 0:
		return 0
	case a > 1:
		return 1
	}
	return a
}

// Interval is the smoothed update cadence.
func (b *StateBuffer) Interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Duration(b.interval * float64(time.Millisecond))
}

// Sample returns every actor as it should be drawn at now.
func (b *StateBuffer) Sample(now time.Time) map[netconfig.ActorID]Entity {
	b.mu.Lock()
	defer b.mu.Unlock()

	a := b.alpha(now)
	out := make(map[netconfig.ActorID]Entity, len(b.cur.Entities))
	for id, e := range b.cur.Entities {
		from, ok := b.prev.Entities[id]
		if ok && !b.snap[id] {
			e.Transform = *netcomponents.LerpNetTransform(from.Transform, e.Transform, a)
		}
		out[id] = e
	}
	return out
}

// Latest returns a copy of the current snapshot without blending.
func (b *StateBuffer) Latest() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur.clone()
}
