package session

import (
	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// Input is one player's control state.
type Input struct {
	Keys    map[string]bool
	Pointer gamemath.Vec2 // accumulated pointer offset, clamped to the pointer range
}

func (in Input) clone() Input {
	keys := make(map[string]bool, len(in.Keys))
	for k, v := range in.Keys {
		keys[k] = v
	}
	return Input{Keys: keys, Pointer: in.Pointer}
}

// Settings are per-player pointer settings.
type Settings struct {
	PointerSensitivity float64
	PointerRange       float64
}

func defaultSettings() Settings {
	return Settings{
		PointerSensitivity: config.Car.DefaultPointerSensitivity,
		PointerRange:       config.Car.DefaultPointerRange,
	}
}

// Stats are one player's per-match counters.
type Stats struct {
	Goals   int
	Touches int
	Flips   int
	Boosts  int
}

// Player is a roster member. Input is double-buffered: commands write
// pending, and each tick works from a copy taken at tick start, so the last
// write before a tick wins.
type Player struct {
	ID    string
	Name  string
	Team  netconfig.Team
	Bot   bool
	Actor netconfig.ActorID

	Settings  Settings
	Locked    bool // movement locked (countdown, ended)
	FlipReady bool

	pending  Input
	current  Input
	boosting bool
}

func newPlayer(id, name string, team netconfig.Team, bot bool) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Team:      team,
		Bot:       bot,
		Settings:  defaultSettings(),
		Locked:    true,
		FlipReady: true,
		pending:   Input{Keys: make(map[string]bool)},
		current:   Input{Keys: make(map[string]bool)},
	}
}

// snapshotInput copies the pending input for this tick.
func (p *Player) snapshotInput() {
	p.current = p.pending.clone()
}

func (p *Player) setKey(key string, down bool) {
	p.pending.Keys[key] = down
}

func (p *Player) movePointer(dx, dy float64) {
	delta := gamemath.Vec2{X: dx, Y: dy}.Scale(p.Settings.PointerSensitivity)
	p.pending.Pointer = gamemath.ClampLength(p.pending.Pointer.Add(delta), p.Settings.PointerRange)
}

func (p *Player) releaseAll() {
	p.pending = Input{Keys: make(map[string]bool)}
}
