package session

import (
	"math"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/physics"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// Member is a read-only view of a roster entry.
type Member struct {
	ID     string
	Name   string
	Team   netconfig.Team
	Bot    bool
	Actor  netconfig.ActorID
	Locked bool
}

func (p *Player) member() Member {
	return Member{ID: p.ID, Name: p.Name, Team: p.Team, Bot: p.Bot, Actor: p.Actor, Locked: p.Locked}
}

// Capacity is the most players one side may hold.
func (s *Session) Capacity() int {
	if s.Kind == netconfig.KindPrivate {
		return config.Match.MaxTeamSize
	}
	return s.Mode.TeamSize()
}

// TeamSize counts the players on team.
func (s *Session) TeamSize(team netconfig.Team) int {
	n := 0
	for _, p := range s.players {
		if p.Team == team {
			n++
		}
	}
	return n
}

// OpenTeam returns the side a newcomer should join: the smaller one, blue on
// a tie. It reports false when both sides are full.
func (s *Session) OpenTeam() (netconfig.Team, bool) {
	blue, red := s.TeamSize(netconfig.TeamBlue), s.TeamSize(netconfig.TeamRed)
	team := netconfig.TeamBlue
	if red < blue {
		team = netconfig.TeamRed
	}
	if s.TeamSize(team) >= s.Capacity() {
		return netconfig.TeamNone, false
	}
	return team, true
}

// Members lists the roster in join order.
func (s *Session) Members() []Member {
	out := make([]Member, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id].member())
	}
	return out
}

func (s *Session) Member(id string) (Member, bool) {
	p, ok := s.players[id]
	if !ok {
		return Member{}, false
	}
	return p.member(), true
}

func (s *Session) Len() int {
	return len(s.players)
}

// AddPlayer attaches a player on team and spawns their car at the first free
// slot of that side. The car stays locked until the next countdown ends. The
// existing roster sees the new car first; the newcomer then joins the channel
// and receives a full snapshot.
func (s *Session) AddPlayer(id, name string, team netconfig.Team, bot bool) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if _, ok := s.players[id]; ok {
		return ErrAlreadyJoined
	}
	if team != netconfig.TeamBlue && team != netconfig.TeamRed {
		return ErrInvalidTeam
	}
	if s.TeamSize(team) >= s.Capacity() {
		return ErrTeamFull
	}

	p := newPlayer(id, name, team, bot)
	s.players[id] = p
	s.order = append(s.order, id)
	if s.records != nil {
		s.track(p)
	}
	s.spawnCar(p)

	s.ch.Join(s.ID, id)
	s.ch.SendTo(id, messages.SessionJoined{
		SessionID: s.ID,
		Code:      s.Code,
		Kind:      int(s.Kind),
		Mode:      s.Mode.String(),
		Team:      int(team),
	})
	s.sendSnapshot(id)

	s.log.Info().Str("player", id).Str("team", team.String()).Bool("bot", bot).Msg("Player joined")
	return nil
}

// sendSnapshot brings one player up to date: actors, state, score and clock.
func (s *Session) sendSnapshot(id string) {
	s.bcast.SnapshotTo(id)
	blue, red := s.Score()
	s.ch.SendTo(id, messages.StateChanged{State: s.state})
	s.ch.SendTo(id, messages.ScoreEvent{Blue: blue, Red: red})
	if s.state.InMatch() {
		s.ch.SendTo(id, messages.ClockEvent{Remaining: wholeSeconds(s.remaining)})
	}
}

func (s *Session) track(p *Player) {
	if _, ok := s.records[p.ID]; ok {
		s.records[p.ID].team = p.Team
		return
	}
	s.records[p.ID] = &record{name: p.Name, team: p.Team, bot: p.Bot}
}

func (s *Session) spawnCar(p *Player) {
	slot := s.freeSlot(p.Team, p.ID)
	s.spawns[p.ID] = slot
	geom := gamemath.Rectangle(config.Car.HalfWidth, config.Car.HalfHeight)
	at := gamemath.Transform{Pos: slot.Pos, Angle: slot.Angle}
	h := s.world.CreateBody(physics.Dynamic, geom, physics.BodyProps{
		Mass:           config.Car.Mass,
		Restitution:    config.Car.Restitution,
		LinearDamping:  config.Car.LinearDamping,
		AngularDamping: config.Car.AngularDamping,
	}, at)
	p.Actor = s.actors.Add(netcomponents.NetActorData{
		Kind:     netconfig.ActorCar,
		Team:     p.Team,
		PlayerID: p.ID,
		Geometry: geom,
	}, at, h)
	s.bcast.Added(p.Actor)
}

func (s *Session) despawnCar(p *Player) {
	if a, ok := s.actors.Remove(p.Actor); ok {
		s.world.DestroyBody(a.Body)
		s.bcast.Removed(a.ID)
	}
	delete(s.spawns, p.ID)
	p.Actor = 0
	p.boosting = false
}

// RemovePlayer detaches a player. Their stats stay in the match result. The
// last player leaving destroys the session; a match left with one side empty
// ends immediately.
func (s *Session) RemovePlayer(id, reason string) error {
	if s.destroyed {
		return ErrDestroyed
	}
	p, ok := s.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	s.despawnCar(p)
	delete(s.players, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.lastTouch == id {
		s.lastTouch = ""
	}
	s.ch.SendTo(id, messages.SessionLeft{SessionID: s.ID, Reason: reason})
	s.ch.Leave(s.ID, id)
	s.log.Info().Str("player", id).Str("reason", reason).Msg("Player left")

	if len(s.players) == 0 {
		s.Destroy()
		if s.hooks.OnEmpty != nil {
			s.hooks.OnEmpty(s)
		}
		return nil
	}
	if s.state.InMatch() && (s.TeamSize(netconfig.TeamBlue) == 0 || s.TeamSize(netconfig.TeamRed) == 0) {
		s.finish(ReasonTeamImbalance)
	}
	return nil
}

// SetTeam moves a private room player to the other side. The car respawns
// there. Switching is refused once a match is underway.
func (s *Session) SetTeam(id string, team netconfig.Team) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.Kind != netconfig.KindPrivate {
		return ErrNotPrivate
	}
	p, ok := s.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if team != netconfig.TeamBlue && team != netconfig.TeamRed {
		return ErrInvalidTeam
	}
	if s.state.InMatch() {
		return ErrWrongState
	}
	if p.Team == team {
		return nil
	}
	if s.TeamSize(team) >= s.Capacity() {
		return ErrTeamFull
	}
	s.despawnCar(p)
	p.Team = team
	s.spawnCar(p)
	s.log.Debug().Str("player", id).Str("team", team.String()).Msg("Player switched team")
	return nil
}

// SettingsPatch holds optional pointer settings. Nil fields are unchanged.
type SettingsPatch struct {
	PointerSensitivity *float64
	PointerRange       *float64
}

// Validate rejects values that are not positive finite numbers.
func (patch SettingsPatch) Validate() error {
	for _, v := range []*float64{patch.PointerSensitivity, patch.PointerRange} {
		if v != nil && !(finite(*v) && *v > 0) {
			return ErrInvalidSettings
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *Session) UpdateSettings(id string, patch SettingsPatch) error {
	p, ok := s.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.PointerSensitivity != nil {
		p.Settings.PointerSensitivity = *patch.PointerSensitivity
	}
	if patch.PointerRange != nil {
		p.Settings.PointerRange = *patch.PointerRange
		p.pending.Pointer = gamemath.ClampLength(p.pending.Pointer, p.Settings.PointerRange)
	}
	return nil
}

// Key records a key press or release. It takes effect on the next tick.
func (s *Session) Key(id, key string, down bool) error {
	p, ok := s.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if !netconfig.ValidKey(key) {
		return ErrInvalidKey
	}
	p.setKey(key, down)
	return nil
}

// MouseMove accumulates a relative pointer movement.
func (s *Session) MouseMove(id string, dx, dy float64) error {
	p, ok := s.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if !finite(dx) || !finite(dy) {
		return ErrInvalidInput
	}
	p.movePointer(dx, dy)
	return nil
}

// MouseButton maps a button onto its key.
func (s *Session) MouseButton(id string, button int, down bool) error {
	key, ok := netconfig.ButtonKey(button)
	if !ok {
		return ErrInvalidButton
	}
	return s.Key(id, key, down)
}

// Stats returns a player's counters for the current match.
func (s *Session) Stats(id string) (Stats, bool) {
	r, ok := s.records[id]
	if !ok {
		return Stats{}, false
	}
	return r.stats, true
}

func (s *Session) stats(id string) *Stats {
	if r, ok := s.records[id]; ok {
		return &r.stats
	}
	return nil
}
