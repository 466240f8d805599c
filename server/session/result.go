package session

import (
	"sort"
	"time"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// Result is the outcome of one match.
type Result struct {
	SessionID string
	Kind      netconfig.SessionKind
	Mode      config.GameMode
	Blue, Red int
	Winner    netconfig.Team // TeamNone on a draw
	Reason    string
	Played    time.Duration
	Players   []PlayerResult
}

// PlayerResult is one participant's line in a Result. Players who left
// before the end are included with Present false.
type PlayerResult struct {
	ID          string
	Name        string
	Team        netconfig.Team
	Bot         bool
	Present     bool
	Stats       Stats
	RatingDelta float64
}

// Team returns the ids of the participants who played for team.
func (r Result) Team(team netconfig.Team) []string {
	var ids []string
	for _, p := range r.Players {
		if p.Team == team {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Message converts the result into its broadcast form.
func (r Result) Message() messages.MatchEnded {
	msg := messages.MatchEnded{Blue: r.Blue, Red: r.Red, Winner: r.Winner, Reason: r.Reason}
	for _, p := range r.Players {
		msg.Stats = append(msg.Stats, messages.PlayerStats{
			PlayerID:    p.ID,
			Name:        p.Name,
			Team:        p.Team,
			Goals:       p.Stats.Goals,
			Touches:     p.Stats.Touches,
			Flips:       p.Stats.Flips,
			Boosts:      p.Stats.Boosts,
			RatingDelta: p.RatingDelta,
		})
	}
	return msg
}

func (s *Session) result(reason string) Result {
	blue, red := s.Score()
	res := Result{
		SessionID: s.ID,
		Kind:      s.Kind,
		Mode:      s.Mode,
		Blue:      blue,
		Red:       red,
		Reason:    reason,
		Played:    config.Match.Duration - s.remaining,
	}
	switch {
	case blue > red:
		res.Winner = netconfig.TeamBlue
	case red > blue:
		res.Winner = netconfig.TeamRed
	}
	for id, r := range s.records {
		_, present := s.players[id]
		res.Players = append(res.Players, PlayerResult{
			ID:      id,
			Name:    r.name,
			Team:    r.team,
			Bot:     r.bot,
			Present: present,
			Stats:   r.stats,
		})
	}
	sort.Slice(res.Players, func(i, j int) bool {
		a, b := res.Players[i], res.Players[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.ID < b.ID
	})
	return res
}
