package session

import (
	"time"

	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/yohamta/donburi"
)

// Broadcaster turns actor changes into events. Transforms are diffed against
// the last broadcast value once per tick; additions, removals and flags go
// out immediately and are never diffed.
type Broadcaster struct {
	sessionID string
	ch        Channel
	actors    *ActorRegistry
	now       func() time.Time
}

func NewBroadcaster(sessionID string, ch Channel, actors *ActorRegistry, now func() time.Time) *Broadcaster {
	return &Broadcaster{sessionID: sessionID, ch: ch, actors: actors, now: now}
}

// Added announces a new actor. Its transform counts as broadcast.
func (b *Broadcaster) Added(id netconfig.ActorID) {
	entry, ok := b.actors.entry(id)
	if !ok {
		return
	}
	tr := *netcomponents.NetTransform.Get(entry)
	sentComp.Set(entry, &sentData{Transform: tr, Valid: true})
	b.ch.Broadcast(b.sessionID, addedMessage(entry))
}

func addedMessage(entry *donburi.Entry) messages.ActorAdded {
	return messages.ActorAdded{
		Actor:     *netcomponents.NetActor.Get(entry),
		Transform: *netcomponents.NetTransform.Get(entry),
		Flags:     *netcomponents.NetFlags.Get(entry),
	}
}

func (b *Broadcaster) Removed(id netconfig.ActorID) {
	b.ch.Broadcast(b.sessionID, messages.ActorRemoved{ID: id})
}

// Flags sends an actor's full flag set.
func (b *Broadcaster) Flags(id netconfig.ActorID, flags netcomponents.NetFlagsData) {
	b.ch.Broadcast(b.sessionID, messages.FlagUpdate{ID: id, Flags: flags})
}

// SnapshotTo sends every live actor to one player.
func (b *Broadcaster) SnapshotTo(playerID string) {
	for _, entry := range b.actors.sorted() {
		b.ch.SendTo(playerID, addedMessage(entry))
	}
}

// Flush diffs every actor against its last broadcast transform and sends the
// changed fields. Nothing is sent when nothing changed. nonInterpolated marks
// the batch as a snap that consumers must not smooth.
func (b *Broadcaster) Flush(tick uint64, nonInterpolated bool) (messages.StatePatch, bool) {
	patch := messages.StatePatch{
		Tick:            tick,
		NonInterpolated: nonInterpolated,
	}
	for _, entry := range b.actors.sorted() {
		if p := diffEntry(entry); !p.Empty() {
			patch.Patches = append(patch.Patches, p)
		}
	}
	if len(patch.Patches) == 0 {
		return patch, false
	}
	patch.Timestamp = b.now().UnixMilli()
	b.ch.Broadcast(b.sessionID, patch)
	return patch, true
}

// diffEntry compares the current transform to the last broadcast one and
// records the current one as broadcast.
func diffEntry(entry *donburi.Entry) messages.TransformPatch {
	cur := *netcomponents.NetTransform.Get(entry)
	last := sentComp.Get(entry)
	p := messages.TransformPatch{ID: netcomponents.NetActor.Get(entry).ID}

	if !last.Valid || cur.X != last.Transform.X || cur.Y != last.Transform.Y {
		pos := gamemath.Vec2{X: cur.X, Y: cur.Y}
		p.Pos = &pos
	}
	if !last.Valid || cur.Angle != last.Transform.Angle {
		angle := cur.Angle
		p.Angle = &angle
	}
	last.Transform = cur
	last.Valid = true
	return p
}
