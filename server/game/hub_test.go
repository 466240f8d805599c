package game

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/server/matchmaking"
	"github.com/automoto/carball-mp/server/session"
	"github.com/automoto/carball-mp/server/simclock"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/automoto/carball-mp/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	members map[string]map[string]bool
	inbox   map[string][]any
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
	h     *Hub
	ch    *fakeChannel
	clock *simclock.Manual
	reg   *session.Registry
	queue *matchmaking.Queue
	store *storage.Memory

	rebinds [][2]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a, err := arena.LoadDefault()
	require.NoError(t, err)

	f := &fixture{
		ch:    newFakeChannel(),
		clock: simclock.NewManual(time.Unix(1_700_000_000, 0)),
		store: storage.NewMemory(config.Matchmaking.DefaultRating),
	}
	f.reg, err = session.NewRegistry(session.RegistryOptions{
		Arena:     a,
		Channel:   f.ch,
		Scheduler: f.clock,
		Logger:    zerolog.Nop(),
		Rand:      rand.New(rand.NewSource(3)),
	})
	require.NoError(t, err)
	f.queue, err = matchmaking.NewQueue(matchmaking.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	f.h = NewHub(Options{
		Registry:      f.reg,
		Queue:         f.queue,
		Store:         f.store,
		Channel:       f.ch,
		Rand:          rand.New(rand.NewSource(5)),
		ServerName:    "test",
		BotDifficulty: config.BotDifficultyNormal,
		OnRebind: func(oldID, newID string) {
			f.rebinds = append(f.rebinds, [2]string{oldID, newID})
		},
		Logger: zerolog.Nop(),
	})
	return f
}

func (f *fixture) connect(ids ...string) {
	for _, id := range ids {
		f.h.Connect(id)
	}
}

func (f *fixture) acks(id string) []messages.Ack {
	return messagesOf[messages.Ack](f.ch.inbox[id])
}

func (f *fixture) lastAck(t *testing.T, id string) messages.Ack {
	t.Helper()
	acks := f.acks(id)
	require.NotEmpty(t, acks)
	return acks[len(acks)-1]
}

func (f *fixture) session(t *testing.T, id string) *session.Session {
	t.Helper()
	p, ok := f.h.Player(id)
	require.True(t, ok)
	require.NotNil(t, p.Session)
	return p.Session
}

// matchPair queues a and b for 1v1 so they land in one public session.
func (f *fixture) matchPair(t *testing.T, a, b string) *session.Session {
	t.Helper()
	f.connect(a, b)
	require.NoError(t, f.h.Handle(a, messages.QueueCommand{Mode: "1v1"}))
	require.NoError(t, f.h.Handle(b, messages.QueueCommand{Mode: "1v1"}))
	return f.session(t, a)
}

func shortMatch(t *testing.T) {
	t.Helper()
	prev := config.Match.Duration
	config.Match.Duration = 2 * time.Second
	t.Cleanup(func() { config.Match.Duration = prev })
}

func TestHub_ConnectWelcomes(t *testing.T) {
	f := newFixture(t)
	f.connect("p1")

	welcomes := messagesOf[messages.Welcome](f.ch.inbox["p1"])
	require.Len(t, welcomes, 1)
	assert.Equal(t, "p1", welcomes[0].PlayerID)
	assert.Equal(t, "test", welcomes[0].ServerName)
	assert.Equal(t, config.Net.TickRate, welcomes[0].TickRate)
}

func TestHub_HelloResumesID(t *testing.T) {
	f := newFixture(t)
	f.connect("tmp")

	id, err := f.h.Hello("tmp", messages.Hello{Name: "  Ana  ", PlayerID: "known"})
	require.NoError(t, err)
	assert.Equal(t, "known", id)
	p, ok := f.h.Player("known")
	require.True(t, ok)
	assert.Equal(t, "Ana", p.Name)
	_, ok = f.h.Player("tmp")
	assert.False(t, ok)
	assert.Equal(t, [][2]string{{"tmp", "known"}}, f.rebinds)
	assert.Len(t, messagesOf[messages.Welcome](f.ch.inbox["known"]), 1)

	// A second connection cannot take an id that is in use.
	f.connect("other")
	id, err = f.h.Hello("other", messages.Hello{PlayerID: "known"})
	require.NoError(t, err)
	assert.Equal(t, "other", id)
}

func TestHub_QueueFormsMatch(t *testing.T) {
	f := newFixture(t)
	s := f.matchPair(t, "a", "b")

	assert.Same(t, s, f.session(t, "b"))
	assert.Equal(t, netconfig.KindPublic, s.Kind)
	assert.Equal(t, netconfig.SessionCountdownToStart, s.State())
	assert.Equal(t, 1, f.reg.Len())
	assert.True(t, f.lastAck(t, "a").OK)
	assert.True(t, f.lastAck(t, "b").OK)
	assert.Empty(t, f.h.Groups())

	blue, red := 0, 0
	for _, m := range s.Members() {
		if m.Team == netconfig.TeamBlue {
			blue++
		} else {
			red++
		}
	}
	assert.Equal(t, 1, blue)
	assert.Equal(t, 1, red)
}

func TestHub_UnknownModeRejected(t *testing.T) {
	f := newFixture(t)
	f.connect("a")

	err := f.h.Handle("a", messages.QueueCommand{Mode: "5v5"})
	assert.ErrorIs(t, err, matchmaking.ErrUnknownMode)

	ack := f.lastAck(t, "a")
	assert.Equal(t, "queue", ack.Command)
	assert.False(t, ack.OK)
	assert.NotEmpty(t, ack.Reason)
	assert.False(t, f.queue.Contains("a"))
}

func TestHub_CommandWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.connect("a")

	for _, cmd := range []any{
		messages.KeyCommand{Key: netconfig.KeyThrottle, Down: true},
		messages.StartCommand{},
		messages.TeamCommand{Team: "red"},
		messages.LeaveGameCommand{},
	} {
		assert.ErrorIs(t, f.h.Handle("a", cmd), ErrNoSession)
		assert.False(t, f.lastAck(t, "a").OK)
	}
	assert.Equal(t, "keydown", f.acks("a")[0].Command)
}

func TestHub_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.connect("a")
	assert.ErrorIs(t, f.h.Handle("a", struct{}{}), ErrUnknownCommand)
	assert.ErrorIs(t, f.h.Handle("ghost", messages.StartCommand{}), ErrUnknownPlayer)
}

func TestHub_InputAckedOnlyOnRejection(t *testing.T) {
	f := newFixture(t)
	f.matchPair(t, "a", "b")
	before := len(f.acks("a"))

	require.NoError(t, f.h.Handle("a", messages.KeyCommand{Key: netconfig.KeyThrottle, Down: true}))
	require.NoError(t, f.h.Handle("a", messages.MouseMoveCommand{DX: 3, DY: 1}))
	assert.Len(t, f.acks("a"), before)

	assert.ErrorIs(t, f.h.Handle("a", messages.KeyCommand{Key: "jump", Down: true}), session.ErrInvalidKey)
	assert.Len(t, f.acks("a"), before+1)
	assert.False(t, f.lastAck(t, "a").OK)

	assert.ErrorIs(t, f.h.Handle("a", messages.MouseMoveCommand{DX: math.Inf(1)}), session.ErrInvalidInput)
	assert.Len(t, f.acks("a"), before+2)
	assert.Equal(t, "mousemove", f.lastAck(t, "a").Command)
}

func TestHub_PrivateRoomByCode(t *testing.T) {
	f := newFixture(t)
	f.connect("a", "b", "c")

	require.NoError(t, f.h.Handle("a", messages.CreateGameCommand{}))
	ack := f.lastAck(t, "a")
	require.True(t, ack.OK)
	require.Len(t, ack.Code, 6)
	room := f.session(t, "a")
	assert.Equal(t, netconfig.SessionPrivateIdle, room.State())

	require.NoError(t, f.h.Handle("b", messages.JoinGameCommand{Code: strings.ToLower(ack.Code)}))
	assert.Same(t, room, f.session(t, "b"))
	m, ok := room.Member("b")
	require.True(t, ok)
	assert.Equal(t, netconfig.TeamRed, m.Team)

	assert.ErrorIs(t, f.h.Handle("c", messages.JoinGameCommand{Code: "ZZZZZZ"}), ErrUnknownCode)
	assert.False(t, f.lastAck(t, "c").OK)
}

func TestHub_TeamSwitchInRoom(t *testing.T) {
	f := newFixture(t)
	f.connect("a")
	require.NoError(t, f.h.Handle("a", messages.CreateGameCommand{Mode: "2v2"}))

	require.NoError(t, f.h.Handle("a", messages.TeamCommand{Team: "red"}))
	m, _ := f.session(t, "a").Member("a")
	assert.Equal(t, netconfig.TeamRed, m.Team)

	assert.ErrorIs(t, f.h.Handle("a", messages.TeamCommand{Team: "green"}), session.ErrInvalidTeam)
}

func TestHub_CreateWhileInMatchRejected(t *testing.T) {
	f := newFixture(t)
	f.matchPair(t, "a", "b")

	assert.ErrorIs(t, f.h.Handle("a", messages.CreateGameCommand{}), ErrInSession)
	assert.ErrorIs(t, f.h.Handle("a", messages.QueueCommand{Mode: "1v1"}), ErrInSession)
}

func TestHub_PublicMatchRatedAndRecorded(t *testing.T) {
	shortMatch(t)
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.ApplyRatings(ctx, map[string]float64{"a": 50}))

	s := f.matchPair(t, "a", "b")
	f.clock.Advance(6 * time.Second)
	require.Equal(t, netconfig.SessionEnded, s.State())

	// A draw against a weaker side costs the favourite.
	ra, err := f.store.Rating(ctx, "a")
	require.NoError(t, err)
	rb, err := f.store.Rating(ctx, "b")
	require.NoError(t, err)
	assert.Less(t, ra, 1050.0)
	assert.Greater(t, rb, 1000.0)
	assert.InDelta(t, 1050+1000, ra+rb, 1e-9)

	matches, err := f.store.RecentMatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, s.ID, matches[0].SessionID)
	assert.Equal(t, session.ReasonTime, matches[0].Reason)
	assert.Equal(t, "public", matches[0].Kind)
	stats, err := matches[0].DecodeStats()
	require.NoError(t, err)
	assert.Len(t, stats, 2)

	ended := messagesOf[messages.MatchEnded](f.ch.inbox["b"])
	require.Len(t, ended, 1)
	for _, st := range ended[0].Stats {
		if st.PlayerID == "b" {
			assert.Greater(t, st.RatingDelta, 0.0)
		}
	}
}

func TestHub_PrivateMatchNotRated(t *testing.T) {
	shortMatch(t)
	f := newFixture(t)
	f.connect("a", "b")
	require.NoError(t, f.h.Handle("a", messages.CreateGameCommand{}))
	require.NoError(t, f.h.Handle("b", messages.JoinGameCommand{Code: f.lastAck(t, "a").Code}))
	require.NoError(t, f.h.Handle("a", messages.StartCommand{}))
	f.clock.Advance(6 * time.Second)
	require.Equal(t, netconfig.SessionEnded, f.session(t, "a").State())

	r, err := f.store.Rating(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, config.Matchmaking.DefaultRating, r)

	matches, err := f.store.RecentMatches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "private", matches[0].Kind)
}

func TestHub_QueueAfterEndedMatchLeavesSession(t *testing.T) {
	shortMatch(t)
	f := newFixture(t)
	f.matchPair(t, "a", "b")
	f.clock.Advance(6 * time.Second)

	require.NoError(t, f.h.Handle("a", messages.QueueCommand{Mode: "1v1"}))
	p, _ := f.h.Player("a")
	assert.Nil(t, p.Session)
	assert.True(t, f.queue.Contains("a"))
}

func TestHub_DisconnectDequeues(t *testing.T) {
	f := newFixture(t)
	f.connect("a")
	require.NoError(t, f.h.Handle("a", messages.QueueCommand{Mode: "2v2"}))
	require.Len(t, f.h.Groups(), 1)

	f.h.Disconnect("a")
	assert.Empty(t, f.h.Groups())
	assert.Equal(t, 0, f.h.Len())
}

func TestHub_DisconnectDuringMatchEndsIt(t *testing.T) {
	f := newFixture(t)
	s := f.matchPair(t, "a", "b")
	f.clock.Advance(4 * time.Second)
	require.Equal(t, netconfig.SessionActive, s.State())

	f.h.Disconnect("b")

	assert.Equal(t, netconfig.SessionEnded, s.State())
	ended := messagesOf[messages.MatchEnded](f.ch.inbox["a"])
	require.Len(t, ended, 1)
	assert.Equal(t, session.ReasonTeamImbalance, ended[0].Reason)

	f.h.Disconnect("a")
	assert.Equal(t, 0, f.reg.Len())
}

func TestHub_SettingsValidatedAndStored(t *testing.T) {
	f := newFixture(t)
	f.connect("a")

	bad := -1.0
	assert.ErrorIs(t, f.h.Handle("a", messages.SettingsCommand{PointerRange: &bad}), session.ErrInvalidSettings)
	nan := math.NaN()
	assert.ErrorIs(t, f.h.Handle("a", messages.SettingsCommand{PointerSensitivity: &nan}), session.ErrInvalidSettings)

	good := 50.0
	require.NoError(t, f.h.Handle("a", messages.SettingsCommand{PointerRange: &good}))
	p, _ := f.h.Player("a")
	require.NotNil(t, p.Settings.PointerRange)
	assert.Equal(t, 50.0, *p.Settings.PointerRange)
	assert.Nil(t, p.Settings.PointerSensitivity)

	// Stored settings follow the player into a room.
	require.NoError(t, f.h.Handle("a", messages.CreateGameCommand{}))
	assert.True(t, f.lastAck(t, "a").OK)
}

func TestHub_AddBotRequiresPrivateRoom(t *testing.T) {
	f := newFixture(t)
	f.connect("solo")
	assert.ErrorIs(t, f.h.Handle("solo", messages.AddBotCommand{}), ErrNoSession)

	f.matchPair(t, "a", "b")
	assert.ErrorIs(t, f.h.Handle("a", messages.AddBotCommand{}), session.ErrNotPrivate)
}

func TestHub_BotPlaysAndLeavesWithLastHuman(t *testing.T) {
	f := newFixture(t)
	f.connect("a")
	require.NoError(t, f.h.Handle("a", messages.CreateGameCommand{}))
	require.NoError(t, f.h.Handle("a", messages.AddBotCommand{Team: "red"}))
	room := f.session(t, "a")

	var botMember session.Member
	for _, m := range room.Members() {
		if m.Bot {
			botMember = m
		}
	}
	require.True(t, botMember.Bot)
	assert.Equal(t, netconfig.TeamRed, botMember.Team)

	require.NoError(t, f.h.Handle("a", messages.StartCommand{}))
	car, ok := room.Actor(botMember.Actor)
	require.True(t, ok)
	spawn := car.Transform.Pos

	f.clock.Advance(4 * time.Second)
	require.Equal(t, netconfig.SessionActive, room.State())
	car, ok = room.Actor(botMember.Actor)
	require.True(t, ok)
	assert.Greater(t, car.Transform.Pos.Dist(spawn), 1.0, "bot should drive once play starts")

	require.NoError(t, f.h.Handle("a", messages.LeaveGameCommand{}))
	assert.True(t, room.Destroyed())
	assert.Equal(t, 0, f.reg.Len())
	_, ok = f.h.Player(botMember.ID)
	assert.False(t, ok)
}
