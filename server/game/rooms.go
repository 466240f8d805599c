package game

import (
	"fmt"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/server/matchmaking"
	"github.com/automoto/carball-mp/server/session"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// leaveQueue drops p from matchmaking before they take a seat elsewhere.
func (h *Hub) leaveQueue(p *Player) {
	if h.queue.Contains(p.ID) {
		h.dequeue(p.ID)
	}
}

// createGame opens a private room with p as its first member and returns the
// join code. The mode only labels the room; private sides always seat up to
// the maximum team size.
func (h *Hub) createGame(p *Player, modeName string) (string, error) {
	mode := config.Mode3v3
	if modeName != "" {
		var ok bool
		if mode, ok = config.ParseGameMode(modeName); !ok {
			return "", fmt.Errorf("%w: %q", matchmaking.ErrUnknownMode, modeName)
		}
	}
	if err := h.free(p); err != nil {
		return "", err
	}
	h.leaveQueue(p)

	s, err := h.registry.Create(netconfig.KindPrivate, mode, h.hooks())
	if err != nil {
		return "", fmt.Errorf("creating room: %w", err)
	}
	if err := h.attach(p, s, netconfig.TeamBlue); err != nil {
		h.registry.Remove(s.ID)
		return "", err
	}
	h.log.Info().Str("session", s.ID).Str("code", s.Code).Str("host", p.ID).Msg("Room created")
	return s.Code, nil
}

// joinGame seats p in the room behind code, on the smaller side.
func (h *Hub) joinGame(p *Player, code string) error {
	s, ok := h.registry.ByCode(code)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
	if p.Session == s {
		return session.ErrAlreadyJoined
	}
	team, ok := s.OpenTeam()
	if !ok {
		return session.ErrTeamFull
	}
	if err := h.free(p); err != nil {
		return err
	}
	h.leaveQueue(p)
	return h.attach(p, s, team)
}

func (h *Hub) setTeam(p *Player, name string) error {
	team, ok := netconfig.ParseTeam(name)
	if !ok {
		return fmt.Errorf("%w: %q", session.ErrInvalidTeam, name)
	}
	return h.withSession(p, func(s *session.Session) error {
		return s.SetTeam(p.ID, team)
	})
}
