package session

import (
	"context"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/physics"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netconfig"
)

const (
	pointerDeadzone = 8.0
	steerGain       = 4.0
)

// drive applies one player's input for this tick. Flip beats boost, boost
// beats throttle and reverse.
func (s *Session) drive(p *Player) {
	if p.Locked {
		s.setBoosting(p, false)
		return
	}
	a, ok := s.actors.Get(p.Actor)
	if !ok {
		return
	}
	in := p.current
	heading := gamemath.Heading(a.Transform.Angle)
	dt := config.FixedDt().Seconds()

	if w, ok := steer(in, a.Transform.Angle); ok {
		s.world.SetAngularVelocity(a.Body, w)
	}

	s.setBoosting(p, in.Keys[netconfig.KeyBoost])
	throttle, reverse := in.Keys[netconfig.KeyThrottle], in.Keys[netconfig.KeyReverse]
	switch {
	case in.Keys[netconfig.KeyFlip] && p.FlipReady:
		s.flip(p, a, heading)
	case p.boosting:
		s.world.ApplyImpulse(a.Body, heading.Scale(config.Car.BoostForce*dt), a.Transform.Pos)
	case throttle && !reverse:
		s.world.ApplyImpulse(a.Body, heading.Scale(config.Car.DriveForce*dt), a.Transform.Pos)
	case reverse && !throttle:
		s.world.ApplyImpulse(a.Body, heading.Scale(-config.Car.ReverseForce*dt), a.Transform.Pos)
	}

	limit := config.Car.MaxSpeed
	if p.boosting || !p.FlipReady {
		limit = config.Car.BoostSpeed
	}
	s.world.SetVelocity(a.Body, gamemath.ClampLength(s.world.Velocity(a.Body), limit))
}

// steer returns the angular velocity for this tick. Turn keys win; without
// them the car turns towards the pointer once it leaves the deadzone.
func steer(in Input, angle float64) (float64, bool) {
	left, right := in.Keys[netconfig.KeyTurnLeft], in.Keys[netconfig.KeyTurnRight]
	switch {
	case left && !right:
		return -config.Car.TurnRate, true
	case right && !left:
		return config.Car.TurnRate, true
	case in.Pointer.Len() > pointerDeadzone:
		diff := gamemath.WrapAngle(in.Pointer.Angle() - angle)
		return gamemath.ClampSpeed(diff*steerGain, config.Car.TurnRate), true
	}
	return 0, false
}

func (s *Session) flip(p *Player, a Actor, heading gamemath.Vec2) {
	p.FlipReady = false
	s.world.ApplyImpulse(a.Body, heading.Scale(config.Car.FlipImpulse), a.Transform.Pos)
	if st := s.stats(p.ID); st != nil {
		st.Flips++
	}
	s.setFlag(p.Actor, netconfig.FlagFlipping, true)
	s.timers.AfterFunc(config.Car.FlipCooldown, func() {
		if s.players[p.ID] != p {
			return
		}
		p.FlipReady = true
		s.setFlag(p.Actor, netconfig.FlagFlipping, false)
	})
}

// setBoosting tracks the boost key. Each activation counts once.
func (s *Session) setBoosting(p *Player, on bool) {
	if p.boosting == on {
		return
	}
	p.boosting = on
	if on {
		if st := s.stats(p.ID); st != nil {
			st.Boosts++
		}
	}
	s.setFlag(p.Actor, netconfig.FlagBoosting, on)
}

func (s *Session) setFlag(id netconfig.ActorID, name string, v bool) {
	if flags, changed := s.actors.SetFlag(id, name, v); changed {
		s.bcast.Flags(id, flags)
	}
}

// onContact records ball touches.
func (s *Session) onContact(a, b physics.BodyHandle) {
	var other physics.BodyHandle
	switch s.ballBody {
	case a:
		other = b
	case b:
		other = a
	default:
		return
	}
	id, ok := s.actors.ByBody(other)
	if !ok {
		return
	}
	car, ok := s.actors.Get(id)
	if !ok || car.Kind != netconfig.ActorCar {
		return
	}
	s.lastTouch = car.PlayerID
	if s.state == netconfig.SessionActive {
		if st := s.stats(car.PlayerID); st != nil {
			st.Touches++
		}
	}
}

// checkGoal fires once when the ball fully enters a goal mouth during play.
func (s *Session) checkGoal() {
	ball, ok := s.actors.Get(s.ball)
	if !ok {
		return
	}
	conceding := netconfig.TeamNone
	for _, team := range netconfig.Teams {
		if s.arena.Goal(team).ContainsCircle(ball.Transform.Pos, config.Ball.Radius) {
			conceding = team
			break
		}
	}
	inside := conceding != netconfig.TeamNone
	entered := inside && !s.ballInGoal
	s.ballInGoal = inside
	if entered && s.state == netconfig.SessionActive {
		s.scoreGoal(conceding)
	}
}

// scoreGoal credits the opponents of the conceding side. The last toucher is
// the scorer; a toucher from the conceding side scored an own goal and earns
// no goal stat.
func (s *Session) scoreGoal(conceding netconfig.Team) {
	scoring := conceding.Opponent()
	s.score[scoring]++

	ev := messages.ScoreEvent{Team: scoring}
	if p, ok := s.players[s.lastTouch]; ok {
		ev.ScorerID = p.ID
		ev.OwnGoal = p.Team != scoring
		if st := s.stats(p.ID); st != nil && !ev.OwnGoal {
			st.Goals++
		}
	}
	ev.Blue, ev.Red = s.Score()
	s.metrics.goals.Add(context.Background(), 1, s.attrs)

	s.ch.Broadcast(s.ID, ev)
	s.setState(netconfig.SessionGoalPause)
	s.explode(conceding)
	s.goalTimer = s.timers.AfterFunc(config.Match.GoalPauseDelay, func() {
		s.goalTimer = nil
		if s.state == netconfig.SessionGoalPause {
			s.enterCountdown(false)
		}
	})
	s.log.Info().
		Str("scoring", scoring.String()).
		Str("scorer", ev.ScorerID).
		Bool("ownGoal", ev.OwnGoal).
		Int("blue", ev.Blue).
		Int("red", ev.Red).
		Msg("Goal")
}

// explode pushes every dynamic actor away from points along the conceded
// goal mouth.
func (s *Session) explode(conceding netconfig.Team) {
	points := s.arena.MouthPoints(conceding, config.Match.ExplosionPoints)
	s.actors.Each(func(a Actor) {
		for _, pt := range points {
			imp := gamemath.ExplosionImpulse(pt, a.Transform.Pos, config.Match.ExplosionRadius, config.Match.ExplosionImpulse)
			if !imp.IsZero() {
				s.world.ApplyImpulse(a.Body, imp, a.Transform.Pos)
			}
		}
	})
}

// freeSlot returns the first slot of team in the smallest layout that seats
// the current roster, skipping slots already held by teammates.
func (s *Session) freeSlot(team netconfig.Team, id string) arena.Slot {
	size, err := s.arena.LayoutSize(s.TeamSize(netconfig.TeamBlue), s.TeamSize(netconfig.TeamRed))
	if err != nil {
		s.log.Error().Err(err).Msg("No spawn layout fits the roster")
		return arena.Slot{Pos: s.arena.Kickoff}
	}
	slots := s.arena.Layouts[size][0].Slots[team]
	for _, slot := range slots {
		taken := false
		for other, held := range s.spawns {
			if other != id && s.players[other] != nil && s.players[other].Team == team && held.Pos == slot.Pos {
				taken = true
				break
			}
		}
		if !taken {
			return slot
		}
	}
	return slots[0]
}

// placeAll snaps every car to a fresh random layout and the ball to kickoff,
// then sends the result as a non-interpolated patch.
func (s *Session) placeAll() {
	var blue, red []string
	for _, id := range s.order {
		if s.players[id].Team == netconfig.TeamBlue {
			blue = append(blue, id)
		} else {
			red = append(red, id)
		}
	}
	placement, err := s.arena.Place(s.rng, blue, red)
	if err != nil {
		s.log.Error().Err(err).Msg("Spawn placement failed")
		return
	}
	for _, id := range s.order {
		p := s.players[id]
		slot := placement.Slots[id]
		s.spawns[id] = slot
		p.FlipReady = true
		s.setFlag(p.Actor, netconfig.FlagFlipping, false)
		s.teleport(p.Actor, gamemath.Transform{Pos: slot.Pos, Angle: slot.Angle})
	}
	s.teleport(s.ball, gamemath.Transform{Pos: s.arena.Kickoff})
	s.ballInGoal = false
	s.lastTouch = ""
	s.bcast.Flush(s.tick, true)
	s.log.Debug().Str("layout", placement.Layout).Msg("Actors placed")
}

func (s *Session) teleport(id netconfig.ActorID, t gamemath.Transform) {
	a, ok := s.actors.Get(id)
	if !ok {
		return
	}
	s.world.SetTransform(a.Body, t)
	s.world.SetAngularVelocity(a.Body, 0)
	s.actors.SetTransform(id, t)
}
