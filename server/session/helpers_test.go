package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/server/simclock"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeChannel records traffic per player, honouring channel membership.
type fakeChannel struct {
	members    map[string]map[string]bool
	inbox      map[string][]any
	broadcasts []any
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		members: make(map[string]map[string]bool),
		inbox:   make(map[string][]any),
	}
}

func (c *fakeChannel) Join(sessionID, playerID string) {
	if c.members[sessionID] == nil {
		c.members[sessionID] = make(map[string]bool)
	}
	c.members[sessionID][playerID] = true
}

func (c *fakeChannel) Leave(sessionID, playerID string) {
	delete(c.members[sessionID], playerID)
}

func (c *fakeChannel) Broadcast(sessionID string, msg any) {
	c.broadcasts = append(c.broadcasts, msg)
	for id := range c.members[sessionID] {
		c.inbox[id] = append(c.inbox[id], msg)
	}
}

func (c *fakeChannel) SendTo(playerID string, msg any) {
	c.inbox[playerID] = append(c.inbox[playerID], msg)
}

func messagesOf[T any](msgs []any) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fixture struct {
	s     *Session
	clock *simclock.Manual
	ch    *fakeChannel
	ended []Result
	rated int
	empty int
}

func newFixture(t *testing.T, kind netconfig.SessionKind, mode config.GameMode) *fixture {
	t.Helper()
	a, err := arena.LoadDefault()
	require.NoError(t, err)

	f := &fixture{
		clock: simclock.NewManual(time.Unix(1_700_000_000, 0)),
		ch:    newFakeChannel(),
	}
	s, err := New(Config{
		ID:        "s1",
		Code:      "ABC234",
		Kind:      kind,
		Mode:      mode,
		Arena:     a,
		Channel:   f.ch,
		Scheduler: f.clock,
		Rand:      rand.New(rand.NewSource(7)),
		Logger:    zerolog.Nop(),
		Hooks: Hooks{
			Rate: func(r Result) map[string]float64 {
				f.rated++
				out := make(map[string]float64)
				for _, p := range r.Players {
					out[p.ID] = 10
				}
				return out
			},
			OnEnded: func(r Result) { f.ended = append(f.ended, r) },
			OnEmpty: func(*Session) { f.empty++ },
		},
	})
	require.NoError(t, err)
	f.s = s
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
}

func (f *fixture) join(t *testing.T, id string, team netconfig.Team) {
	t.Helper()
	require.NoError(t, f.s.AddPlayer(id, id, team, false))
}

// play runs the countdown so the session is Active.
func (f *fixture) play(t *testing.T) {
	t.Helper()
	if f.s.Kind == netconfig.KindPrivate {
		require.NoError(t, f.s.Start())
	} else {
		require.NoError(t, f.s.Begin())
	}
	f.advance(config.Match.CountdownStep * time.Duration(config.Match.CountdownFrom))
	require.Equal(t, netconfig.SessionActive, f.s.State())
}

func (f *fixture) car(t *testing.T, playerID string) Actor {
	t.Helper()
	m, ok := f.s.Member(playerID)
	require.True(t, ok)
	a, ok := f.s.actors.Get(m.Actor)
	require.True(t, ok)
	return a
}

func (f *fixture) ball() Actor {
	a, _ := f.s.actors.Get(f.s.ball)
	return a
}
