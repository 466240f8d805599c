// Package session runs one match: the roster, the physics world, the fixed
// timestep clock and the state machine that moves a room from forming through
// countdown, play and goal pauses to the final result.
//
// A Session is not safe for concurrent use. Every method, hook and timer
// callback runs on the Scheduler the session was created with.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/physics"
	"github.com/automoto/carball-mp/server/simclock"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultPollInterval = 4 * time.Millisecond
	wallRestitution     = 0.5
)

// Reasons a match ends.
const (
	ReasonTime          = "time"
	ReasonTeamImbalance = "team-imbalance"
	ReasonHost          = "ended-by-host"
	ReasonShutdown      = "shutdown"
)

// Hooks let the owner observe a session. They run on the session's scheduler.
type Hooks struct {
	// Rate returns rating deltas by player id. Only public matches are rated.
	Rate func(Result) map[string]float64
	// OnEnded receives the final result after MatchEnded was broadcast.
	OnEnded func(Result)
	// OnEmpty runs once the last player left and the session was destroyed.
	OnEmpty func(*Session)
	// OnTick runs at the start of every tick, before inputs are read.
	OnTick func(s *Session, tick uint64)
}

// Config wires a session to its collaborators.
type Config struct {
	ID           string
	Code         string
	Kind         netconfig.SessionKind
	Mode         config.GameMode
	Arena        *arena.Arena
	Channel      Channel
	Scheduler    simclock.Scheduler
	PollInterval time.Duration
	Rand         *rand.Rand
	Logger       zerolog.Logger
	Hooks        Hooks
}

// Session is one live match room.
type Session struct {
	ID   string
	Code string
	Kind netconfig.SessionKind
	Mode config.GameMode

	arena   *arena.Arena
	ch      Channel
	timers  *simclock.Group
	clock   *simclock.Clock
	world   physics.World
	actors  *ActorRegistry
	bcast   *Broadcaster
	rng     *rand.Rand
	log     zerolog.Logger
	hooks   Hooks
	metrics *instruments
	attrs   metric.MeasurementOption

	state   netconfig.SessionState
	players map[string]*Player
	order   []string // join order
	spawns  map[string]arena.Slot
	records map[string]*record // per-match stats, nil outside a match

	ball       netconfig.ActorID
	ballBody   physics.BodyHandle
	ballInGoal bool
	lastTouch  string

	score     map[netconfig.Team]int
	remaining time.Duration
	countdown int
	activated bool
	tick      uint64

	countdownTimer simclock.Timer
	goalTimer      simclock.Timer
	destroyed      bool
}

// record keeps a player's stats for the final result even after they leave.
type record struct {
	name  string
	team  netconfig.Team
	bot   bool
	stats Stats
}

// New builds the arena world, spawns the ball and starts the clock. Public
// sessions start Forming and private rooms start PrivateIdle.
func New(cfg Config) (*Session, error) {
	if cfg.Arena == nil {
		return nil, errors.New("session: arena is required")
	}
	if cfg.Channel == nil || cfg.Scheduler == nil {
		return nil, errors.New("session: channel and scheduler are required")
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("session: invalid game mode %d", cfg.Mode)
	}
	m, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("session: metrics: %w", err)
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	timers := simclock.NewGroup(cfg.Scheduler)
	actors := NewActorRegistry()

	s := &Session{
		ID:      cfg.ID,
		Code:    cfg.Code,
		Kind:    cfg.Kind,
		Mode:    cfg.Mode,
		arena:   cfg.Arena,
		ch:      cfg.Channel,
		timers:  timers,
		world:   physics.NewSpace(cfg.Arena.Width, cfg.Arena.Height, config.Net.CellSize),
		actors:  actors,
		bcast:   NewBroadcaster(cfg.ID, cfg.Channel, actors, timers.Now),
		rng:     rng,
		log:     cfg.Logger.With().Str("session", cfg.ID).Str("mode", cfg.Mode.String()).Logger(),
		hooks:   cfg.Hooks,
		metrics: m,
		attrs:   metric.WithAttributes(attribute.String("mode", cfg.Mode.String()), attribute.String("kind", cfg.Kind.String())),
		players: make(map[string]*Player),
		spawns:  make(map[string]arena.Slot),
		score:   map[netconfig.Team]int{netconfig.TeamBlue: 0, netconfig.TeamRed: 0},
		state:   netconfig.SessionForming,
	}
	if cfg.Kind == netconfig.KindPrivate {
		s.state = netconfig.SessionPrivateIdle
	}

	for _, w := range cfg.Arena.Walls {
		s.world.CreateBody(physics.Static,
			gamemath.Rectangle(w.Width()/2, w.Height()/2),
			physics.BodyProps{Restitution: wallRestitution},
			gamemath.Transform{Pos: w.Center()})
	}
	s.spawnBall()
	s.world.SetContactListener(physics.ContactFuncs{OnBegin: s.onContact})

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	s.clock = simclock.NewClock(timers, simclock.ClockConfig{
		FixedDt:      config.FixedDt(),
		MaxFrameTime: config.Net.MaxFrameTime,
		PollInterval: poll,
	}, s.step)
	s.clock.Start()

	s.log.Info().Str("kind", s.Kind.String()).Str("state", s.state.String()).Msg("Session created")
	return s, nil
}

func (s *Session) spawnBall() {
	geom := gamemath.Circle(config.Ball.Radius)
	at := gamemath.Transform{Pos: s.arena.Kickoff}
	s.ballBody = s.world.CreateBody(physics.Dynamic, geom, physics.BodyProps{
		Mass:          config.Ball.Mass,
		Restitution:   config.Ball.Restitution,
		LinearDamping: config.Ball.LinearDamping,
	}, at)
	s.ball = s.actors.Add(netcomponents.NetActorData{Kind: netconfig.ActorBall, Geometry: geom}, at, s.ballBody)
	s.bcast.Added(s.ball)
}

// step is one fixed tick.
func (s *Session) step(n uint64) {
	start := time.Now()
	s.tick = n
	if s.hooks.OnTick != nil {
		s.hooks.OnTick(s, n)
	}
	if s.destroyed {
		return
	}

	for _, id := range s.order {
		s.players[id].snapshotInput()
	}
	for _, id := range s.order {
		s.drive(s.players[id])
	}

	s.world.Step(config.FixedDt(), config.Net.VelocityIterations, config.Net.PositionIterations)
	s.syncActors()
	s.checkGoal()
	s.advanceTimer()
	s.bcast.Flush(n, false)

	ctx := context.Background()
	s.metrics.ticks.Add(ctx, 1, s.attrs)
	s.metrics.tickDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, s.attrs)
}

// syncActors copies body transforms into the actor registry and caps the
// ball's speed.
func (s *Session) syncActors() {
	s.world.SetVelocity(s.ballBody, gamemath.ClampLength(s.world.Velocity(s.ballBody), config.Ball.MaxSpeed))
	s.actors.Each(func(a Actor) {
		s.actors.SetTransform(a.ID, s.world.Transform(a.Body))
	})
}

func (s *Session) setState(state netconfig.SessionState) {
	if s.state == state {
		return
	}
	s.log.Debug().Str("from", s.state.String()).Str("to", state.String()).Msg("Session state changed")
	s.state = state
	s.ch.Broadcast(s.ID, messages.StateChanged{State: state})
}

// Begin starts a formed public session.
func (s *Session) Begin() error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.state != netconfig.SessionForming {
		return ErrWrongState
	}
	s.enterCountdown(true)
	return nil
}

// Start force-starts a private room, or restarts it after a match ended.
func (s *Session) Start() error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.Kind != netconfig.KindPrivate {
		return ErrNotPrivate
	}
	if s.state != netconfig.SessionPrivateIdle && s.state != netconfig.SessionEnded {
		return ErrWrongState
	}
	s.enterCountdown(true)
	return nil
}

// End force-ends a private room's match.
func (s *Session) End() error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.Kind != netconfig.KindPrivate {
		return ErrNotPrivate
	}
	if !s.state.InMatch() {
		return ErrWrongState
	}
	s.finish(ReasonHost)
	return nil
}

// Abort ends a running match for reason. Sessions outside a match are left
// alone.
func (s *Session) Abort(reason string) {
	if s.destroyed {
		return
	}
	s.finish(reason)
}

// enterCountdown locks every car, snaps all actors to a fresh spawn layout and
// counts down to play. initial resets the score, stats and match timer.
func (s *Session) enterCountdown(initial bool) {
	s.cancelFlowTimers()
	if initial {
		s.score[netconfig.TeamBlue], s.score[netconfig.TeamRed] = 0, 0
		s.remaining = config.Match.Duration
		s.activated = false
		s.lastTouch = ""
		s.records = make(map[string]*record, len(s.players))
		for _, id := range s.order {
			s.track(s.players[id])
		}
	}
	s.setState(netconfig.SessionCountdownToStart)
	for _, id := range s.order {
		p := s.players[id]
		p.Locked = true
		s.setBoosting(p, false)
	}
	s.placeAll()
	s.countdown = config.Match.CountdownFrom
	s.countdownStep()
}

func (s *Session) countdownStep() {
	s.ch.Broadcast(s.ID, messages.CountdownEvent{Value: s.countdown})
	if s.countdown <= 0 {
		s.countdownTimer = nil
		s.enterActive()
		return
	}
	s.countdownTimer = s.timers.AfterFunc(config.Match.CountdownStep, func() {
		s.countdown--
		s.countdownStep()
	})
}

func (s *Session) enterActive() {
	for _, id := range s.order {
		s.players[id].Locked = false
	}
	s.setState(netconfig.SessionActive)
	if !s.activated {
		s.activated = true
		s.log.Info().Int("players", len(s.players)).Msg("Match started")
	}
	s.ch.Broadcast(s.ID, messages.ClockEvent{Remaining: wholeSeconds(s.remaining)})
}

// advanceTimer consumes one tick of match time. The timer only runs while
// Active, so it stays frozen through goal pauses and countdowns.
func (s *Session) advanceTimer() {
	if s.state != netconfig.SessionActive {
		return
	}
	before := wholeSeconds(s.remaining)
	s.remaining -= config.FixedDt()
	if s.remaining <= 0 {
		s.remaining = 0
		s.ch.Broadcast(s.ID, messages.ClockEvent{Remaining: 0})
		s.finish(ReasonTime)
		return
	}
	if now := wholeSeconds(s.remaining); now != before {
		s.ch.Broadcast(s.ID, messages.ClockEvent{Remaining: now})
	}
}

func wholeSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// finish ends the match, rates it and broadcasts the result.
func (s *Session) finish(reason string) {
	if !s.state.InMatch() {
		return
	}
	s.cancelFlowTimers()
	for _, id := range s.order {
		p := s.players[id]
		p.Locked = true
		s.setBoosting(p, false)
	}
	s.setState(netconfig.SessionEnded)

	res := s.result(reason)
	if s.Kind == netconfig.KindPublic && s.hooks.Rate != nil {
		deltas := s.hooks.Rate(res)
		for i := range res.Players {
			res.Players[i].RatingDelta = deltas[res.Players[i].ID]
		}
	}
	s.ch.Broadcast(s.ID, res.Message())
	s.log.Info().
		Int("blue", res.Blue).
		Int("red", res.Red).
		Str("winner", res.Winner.String()).
		Str("reason", reason).
		Msg("Match ended")

	if s.hooks.OnEnded != nil {
		s.hooks.OnEnded(res)
	}
	s.records = nil
}

func (s *Session) cancelFlowTimers() {
	if s.countdownTimer != nil {
		s.countdownTimer.Stop()
		s.countdownTimer = nil
	}
	if s.goalTimer != nil {
		s.goalTimer.Stop()
		s.goalTimer = nil
	}
}

// Destroy stops the clock, cancels every pending timer and releases all
// bodies. It is idempotent.
func (s *Session) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.clock.Stop()
	s.timers.Stop()
	s.countdownTimer, s.goalTimer = nil, nil
	for _, id := range s.order {
		s.ch.Leave(s.ID, id)
	}
	var all []Actor
	s.actors.Each(func(a Actor) {
		all = append(all, a)
	})
	for _, a := range all {
		s.world.DestroyBody(a.Body)
		s.actors.Remove(a.ID)
	}
	s.log.Info().Msg("Session destroyed")
}

func (s *Session) State() netconfig.SessionState {
	return s.state
}

func (s *Session) Destroyed() bool {
	return s.destroyed
}

// Score returns the blue and red goal counts.
func (s *Session) Score() (blue, red int) {
	return s.score[netconfig.TeamBlue], s.score[netconfig.TeamRed]
}

// Remaining is the match time left.
func (s *Session) Remaining() time.Duration {
	return s.remaining
}

// Countdown is the last countdown value broadcast.
func (s *Session) Countdown() int {
	return s.countdown
}

// Tick is the number of the last tick run.
func (s *Session) Tick() uint64 {
	return s.tick
}

// Actor returns a read-only view of one actor.
func (s *Session) Actor(id netconfig.ActorID) (Actor, bool) {
	return s.actors.Get(id)
}

// Ball returns the ball actor.
func (s *Session) Ball() Actor {
	a, _ := s.actors.Get(s.ball)
	return a
}

func (s *Session) Arena() *arena.Arena {
	return s.arena
}

// Info summarises the session for the admin surface.
type Info struct {
	ID        string `json:"id"`
	Code      string `json:"code,omitempty"`
	Kind      string `json:"kind"`
	Mode      string `json:"mode"`
	State     string `json:"state"`
	Blue      int    `json:"blue"`
	Red       int    `json:"red"`
	Players   int    `json:"players"`
	Remaining int    `json:"remaining"`
}

func (s *Session) Info() Info {
	blue, red := s.Score()
	return Info{
		ID:        s.ID,
		Code:      s.Code,
		Kind:      s.Kind.String(),
		Mode:      s.Mode.String(),
		State:     s.state.String(),
		Blue:      blue,
		Red:       red,
		Players:   len(s.players),
		Remaining: wholeSeconds(s.remaining),
	}
}
