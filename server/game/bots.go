package game

import (
	"fmt"

	"github.com/automoto/carball-mp/bot"
	"github.com/automoto/carball-mp/server/session"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// botSeat is an in-process bot. It plays through Hub.Handle like any client.
type botSeat struct {
	player *Player
	driver *bot.Driver
}

// botCommands feeds a driver's output back through the command surface.
type botCommands struct {
	h  *Hub
	id string
}

func (c botCommands) Key(key string, down bool) error {
	return c.h.Handle(c.id, messages.KeyCommand{Key: key, Down: down})
}

func (c botCommands) MouseMove(dx, dy float64) error {
	return c.h.Handle(c.id, messages.MouseMoveCommand{DX: dx, DY: dy})
}

// addBot seats a bot in p's private room. An empty team picks the smaller
// side.
func (h *Hub) addBot(p *Player, teamName string) error {
	if p.Session == nil || p.Session.Destroyed() {
		return ErrNoSession
	}
	s := p.Session
	if s.Kind != netconfig.KindPrivate {
		return session.ErrNotPrivate
	}

	var team netconfig.Team
	if teamName == "" {
		var ok bool
		if team, ok = s.OpenTeam(); !ok {
			return session.ErrTeamFull
		}
	} else {
		var ok bool
		if team, ok = netconfig.ParseTeam(teamName); !ok {
			return fmt.Errorf("%w: %q", session.ErrInvalidTeam, teamName)
		}
	}

	h.botSeq++
	id := fmt.Sprintf("bot-%s-%d", s.ID[:8], h.botSeq)
	seat := &botSeat{
		player: &Player{ID: id, Name: fmt.Sprintf("Bot %d", h.botSeq), Bot: true},
		driver: bot.NewDriver(h.difficulty),
	}
	if err := h.attach(seat.player, s, team); err != nil {
		return err
	}
	h.players[id] = seat.player
	h.bots[id] = seat
	h.log.Info().Str("session", s.ID).Str("bot", id).Str("team", team.String()).Msg("Bot added")
	return nil
}

// driveBots runs every bot of s for this tick. Their commands land before
// the session reads input, so they act on the same tick.
func (h *Hub) driveBots(s *session.Session, tick uint64) {
	ball := s.Ball().Transform.Pos
	inMatch := s.State().InMatch()
	for _, m := range s.Members() {
		if !m.Bot {
			continue
		}
		seat, ok := h.bots[m.ID]
		if !ok {
			continue
		}
		car, ok := s.Actor(m.Actor)
		if !ok {
			continue
		}
		v := bot.View{
			Tick:   tick,
			Self:   car.Transform,
			Ball:   ball,
			Attack: s.Arena().Goal(m.Team.Opponent()).Center(),
			Active: inMatch && !m.Locked,
		}
		if err := seat.driver.Drive(v, botCommands{h: h, id: m.ID}); err != nil {
			h.log.Warn().Err(err).Str("bot", m.ID).Msg("Bot command failed")
		}
	}
}

// pruneBots removes every bot from s once no human is left in it.
func (h *Hub) pruneBots(s *session.Session) {
	if s.Destroyed() {
		return
	}
	members := s.Members()
	for _, m := range members {
		if !m.Bot {
			return
		}
	}
	for _, m := range members {
		seat, ok := h.bots[m.ID]
		if !ok {
			continue
		}
		delete(h.bots, m.ID)
		delete(h.players, m.ID)
		seat.player.Session = nil
		if err := s.RemovePlayer(m.ID, reasonNoHumans); err != nil {
			h.log.Warn().Err(err).Str("bot", m.ID).Msg("Removing bot")
		}
	}
}
