package session

import (
	"testing"
	"time"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/physics"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ballData() netcomponents.NetActorData {
	return netcomponents.NetActorData{Kind: netconfig.ActorBall, Geometry: gamemath.Circle(5)}
}

func TestBroadcaster_FlushSendsOnlyChanges(t *testing.T) {
	ch := newFakeChannel()
	ch.Join("s", "p")
	reg := NewActorRegistry()
	now := time.Unix(100, 0)
	b := NewBroadcaster("s", ch, reg, func() time.Time { return now })

	id := reg.Add(ballData(), gamemath.Transform{Pos: gamemath.Vec2{X: 10, Y: 20}, Angle: 1}, 1)
	b.Added(id)

	_, sent := b.Flush(1, false)
	assert.False(t, sent, "nothing moved since the add")

	reg.SetTransform(id, gamemath.Transform{Pos: gamemath.Vec2{X: 11, Y: 20}, Angle: 1})
	patch, sent := b.Flush(2, false)
	require.True(t, sent)
	require.Len(t, patch.Patches, 1)
	assert.Equal(t, &gamemath.Vec2{X: 11, Y: 20}, patch.Patches[0].Pos)
	assert.Nil(t, patch.Patches[0].Angle)
	assert.Equal(t, now.UnixMilli(), patch.Timestamp)
	assert.Equal(t, uint64(2), patch.Tick)

	_, sent = b.Flush(3, false)
	assert.False(t, sent)

	reg.SetTransform(id, gamemath.Transform{Pos: gamemath.Vec2{X: 11, Y: 20}, Angle: 2})
	patch, sent = b.Flush(4, true)
	require.True(t, sent)
	assert.Nil(t, patch.Patches[0].Pos)
	require.NotNil(t, patch.Patches[0].Angle)
	assert.Equal(t, 2.0, *patch.Patches[0].Angle)
	assert.True(t, patch.NonInterpolated)

	assert.Len(t, messagesOf[messages.StatePatch](ch.inbox["p"]), 2)
}

func TestBroadcaster_UnsentActorGetsFullPatch(t *testing.T) {
	ch := newFakeChannel()
	reg := NewActorRegistry()
	b := NewBroadcaster("s", ch, reg, time.Now)

	reg.Add(ballData(), gamemath.Transform{Pos: gamemath.Vec2{X: 1, Y: 2}}, 1)
	patch, sent := b.Flush(1, false)
	require.True(t, sent)
	assert.NotNil(t, patch.Patches[0].Pos)
	assert.NotNil(t, patch.Patches[0].Angle)
}

func TestBroadcaster_SnapshotInIDOrder(t *testing.T) {
	ch := newFakeChannel()
	reg := NewActorRegistry()
	b := NewBroadcaster("s", ch, reg, time.Now)

	for i := 1; i <= 3; i++ {
		reg.Add(ballData(), gamemath.Transform{}, physics.BodyHandle(i))
	}
	b.SnapshotTo("late")

	added := messagesOf[messages.ActorAdded](ch.inbox["late"])
	require.Len(t, added, 3)
	for i, ev := range added {
		assert.Equal(t, netconfig.ActorID(i+1), ev.Actor.ID)
	}
	assert.Empty(t, ch.broadcasts)
}

func TestActorRegistry_AddRemove(t *testing.T) {
	reg := NewActorRegistry()
	ball := reg.Add(ballData(), gamemath.Transform{}, 7)
	car := reg.Add(netcomponents.NetActorData{Kind: netconfig.ActorCar, PlayerID: "a", Team: netconfig.TeamBlue}, gamemath.Transform{}, 8)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 1, reg.Cars())
	assert.NotEqual(t, ball, car)

	id, ok := reg.ByBody(8)
	require.True(t, ok)
	assert.Equal(t, car, id)

	a, ok := reg.Remove(car)
	require.True(t, ok)
	assert.Equal(t, "a", a.PlayerID)
	_, ok = reg.Remove(car)
	assert.False(t, ok)
	_, ok = reg.ByBody(8)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Cars())
}

func TestActorRegistry_SetFlag(t *testing.T) {
	reg := NewActorRegistry()
	id := reg.Add(ballData(), gamemath.Transform{}, 1)

	flags, changed := reg.SetFlag(id, netconfig.FlagBoosting, true)
	assert.True(t, changed)
	assert.True(t, flags.Boosting)

	_, changed = reg.SetFlag(id, netconfig.FlagBoosting, true)
	assert.False(t, changed)

	_, changed = reg.SetFlag(id, "glowing", true)
	assert.False(t, changed)
}

func TestBroadcaster_ReplayRebuildsTransforms(t *testing.T) {
	f := newFixture(t, netconfig.KindPublic, config.Mode1v1)
	f.join(t, "a", netconfig.TeamBlue)
	f.join(t, "b", netconfig.TeamRed)
	f.play(t)

	require.NoError(t, f.s.Key("a", netconfig.KeyThrottle, true))
	require.NoError(t, f.s.Key("a", netconfig.KeyBoost, true))
	require.NoError(t, f.s.Key("b", netconfig.KeyThrottle, true))
	f.advance(2 * time.Second)

	replayed := make(map[netconfig.ActorID]netcomponents.NetTransformData)
	for _, msg := range f.ch.broadcasts {
		switch m := msg.(type) {
		case messages.ActorAdded:
			replayed[m.Actor.ID] = m.Transform
		case messages.ActorRemoved:
			delete(replayed, m.ID)
		case messages.StatePatch:
			for _, p := range m.Patches {
				cur, ok := replayed[p.ID]
				require.True(t, ok, "patch for unknown actor %d", p.ID)
				replayed[p.ID] = p.Apply(cur)
			}
		}
	}

	require.Len(t, replayed, 3)
	f.s.actors.Each(func(a Actor) {
		assert.Equal(t, netcomponents.FromTransform(a.Transform), replayed[a.ID], "actor %d", a.ID)
	})
}
