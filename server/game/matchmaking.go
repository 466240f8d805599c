package game

import (
	"fmt"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/server/matchmaking"
	"github.com/automoto/carball-mp/server/session"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/automoto/carball-mp/storage"
	"github.com/google/uuid"
)

func (h *Hub) enqueue(p *Player, modeName string) error {
	mode, ok := config.ParseGameMode(modeName)
	if !ok {
		return fmt.Errorf("%w: %q", matchmaking.ErrUnknownMode, modeName)
	}
	if err := h.free(p); err != nil {
		return err
	}
	matches, err := h.queue.Enqueue(p.ID, mode, h.rating(p.ID))
	if err != nil {
		return err
	}
	h.startMatches(matches)
	return nil
}

func (h *Hub) dequeue(id string) {
	matches, err := h.queue.Dequeue(id)
	if err != nil {
		h.log.Warn().Err(err).Str("player", id).Msg("Dequeue")
		return
	}
	h.startMatches(matches)
}

func (h *Hub) startMatches(matches []matchmaking.Match) {
	for _, m := range matches {
		if err := h.startMatch(m); err != nil {
			h.log.Error().Err(err).Str("mode", m.Mode.String()).Strs("players", m.Members).Msg("Starting match")
		}
	}
}

// startMatch turns a completed group into a public session: random balanced
// teams, every member attached, then straight into the countdown.
func (h *Hub) startMatch(m matchmaking.Match) error {
	blue, red, err := matchmaking.AssignTeams(h.rng, m.Members)
	if err != nil {
		return err
	}
	s, err := h.registry.Create(netconfig.KindPublic, m.Mode, h.hooks())
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	sides := []struct {
		team netconfig.Team
		ids  []string
	}{
		{netconfig.TeamBlue, blue},
		{netconfig.TeamRed, red},
	}
	for _, side := range sides {
		for _, id := range side.ids {
			p, ok := h.players[id]
			if !ok {
				continue
			}
			if err := h.attach(p, s, side.team); err != nil {
				h.log.Error().Err(err).Str("player", id).Str("session", s.ID).Msg("Attaching matched player")
			}
		}
	}
	if s.Destroyed() {
		return fmt.Errorf("session %s emptied before start", s.ID)
	}
	h.log.Info().
		Str("session", s.ID).
		Str("mode", m.Mode.String()).
		Float64("avgMMR", m.AvgMMR).
		Strs("blue", blue).
		Strs("red", red).
		Msg("Match formed")
	return s.Begin()
}

func (h *Hub) hooks() session.Hooks {
	return session.Hooks{
		Rate:    h.rate,
		OnEnded: h.record,
		OnTick:  h.driveBots,
	}
}

// rating reads a player's MMR. Storage failures fall back to the default.
func (h *Hub) rating(id string) float64 {
	ctx, cancel := storeContext()
	defer cancel()
	r, err := h.store.Rating(ctx, id)
	if err != nil {
		h.log.Error().Err(err).Str("player", id).Msg("Reading rating")
		return config.Matchmaking.DefaultRating
	}
	return r
}

// rate applies the team Elo rule to a finished public match and stores the
// new ratings. Players who left early are rated with their side.
func (h *Hub) rate(res session.Result) map[string]float64 {
	blue := make(map[string]float64)
	red := make(map[string]float64)
	for _, p := range res.Players {
		if p.Bot {
			continue
		}
		switch p.Team {
		case netconfig.TeamBlue:
			blue[p.ID] = h.rating(p.ID)
		case netconfig.TeamRed:
			red[p.ID] = h.rating(p.ID)
		}
	}

	score := matchmaking.Draw
	switch res.Winner {
	case netconfig.TeamBlue:
		score = matchmaking.BlueWins
	case netconfig.TeamRed:
		score = matchmaking.RedWins
	}
	deltas := matchmaking.TeamElo(blue, red, score, config.Matchmaking.EloK)

	ctx, cancel := storeContext()
	defer cancel()
	if err := h.store.ApplyRatings(ctx, deltas); err != nil {
		h.log.Error().Err(err).Str("session", res.SessionID).Msg("Storing ratings")
	}
	return deltas
}

// record persists a finished match.
func (h *Hub) record(res session.Result) {
	stats, err := storage.EncodeStats(res.Message().Stats)
	if err != nil {
		h.log.Error().Err(err).Str("session", res.SessionID).Msg("Encoding match stats")
		return
	}
	ctx, cancel := storeContext()
	defer cancel()
	err = h.store.SaveMatch(ctx, storage.MatchRecord{
		ID:        uuid.NewString(),
		SessionID: res.SessionID,
		Mode:      res.Mode.String(),
		Kind:      res.Kind.String(),
		Blue:      res.Blue,
		Red:       res.Red,
		Winner:    res.Winner.String(),
		Reason:    res.Reason,
		PlayedMs:  res.Played.Milliseconds(),
		Stats:     stats,
	})
	if err != nil {
		h.log.Error().Err(err).Str("session", res.SessionID).Msg("Saving match")
	}
}
