// Package arena describes the playing field: walls, goal mouths, the ball
// kickoff point and the catalog of named spawn layouts. It is pure data and
// has no dependency on the simulation.
package arena

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// Arena is a parsed field description.
type Arena struct {
	Width, Height float64
	Walls         []gamemath.Rect
	Goals         map[netconfig.Team]gamemath.Rect // keyed by the defending team
	Kickoff       gamemath.Vec2

	// Layouts keyed by side capacity, sorted by name.
	Layouts map[int][]Layout
}

// Slot is one spawn position with its facing angle.
type Slot struct {
	Pos   gamemath.Vec2
	Angle float64
}

// Layout is a named spawn arrangement offering Size slots per side.
type Layout struct {
	Name  string
	Size  int
	Slots map[netconfig.Team][]Slot
}

// Goal returns the goal mouth defended by team.
func (a *Arena) Goal(team netconfig.Team) gamemath.Rect {
	return a.Goals[team]
}

// MouthPoints returns n points spread along the field-facing edge of the goal
// defended by team, from top to bottom.
func (a *Arena) MouthPoints(team netconfig.Team, n int) []gamemath.Vec2 {
	g := a.Goals[team]
	x := g.Max.X
	if g.Center().X > a.Width/2 {
		x = g.Min.X
	}
	if n <= 1 {
		return []gamemath.Vec2{{X: x, Y: g.Center().Y}}
	}
	pts := make([]gamemath.Vec2, n)
	step := g.Height() / float64(n-1)
	for i := range pts {
		pts[i] = gamemath.Vec2{X: x, Y: g.Min.Y + step*float64(i)}
	}
	return pts
}

// LayoutSize returns the smallest catalog size able to seat the larger side.
func (a *Arena) LayoutSize(blue, red int) (int, error) {
	need := max(blue, red, 1)
	sizes := make([]int, 0, len(a.Layouts))
	for size := range a.Layouts {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	for _, size := range sizes {
		if size >= need {
			return size, nil
		}
	}
	return 0, fmt.Errorf("no spawn layout seats %d per side", need)
}

// Placement maps each player id to a spawn slot.
type Placement struct {
	Layout string
	Slots  map[string]Slot
}

// Place picks a layout for the roster sizes uniformly at random and assigns
// every player of each side a distinct slot of that side. The input slices
// are not modified.
func (a *Arena) Place(rng *rand.Rand, blue, red []string) (Placement, error) {
	size, err := a.LayoutSize(len(blue), len(red))
	if err != nil {
		return Placement{}, err
	}
	catalog := a.Layouts[size]
	layout := catalog[rng.Intn(len(catalog))]

	p := Placement{Layout: layout.Name, Slots: make(map[string]Slot, len(blue)+len(red))}
	for _, side := range []struct {
		team    netconfig.Team
		players []string
	}{{netconfig.TeamBlue, blue}, {netconfig.TeamRed, red}} {
		slots := layout.Slots[side.team]
		order := rng.Perm(len(slots))
		for i, id := range side.players {
			p.Slots[id] = slots[order[i]]
		}
	}
	return p, nil
}

func (a *Arena) validate() error {
	for _, team := range netconfig.Teams {
		if _, ok := a.Goals[team]; !ok {
			return fmt.Errorf("missing %s goal", team)
		}
	}
	if len(a.Layouts) == 0 {
		return fmt.Errorf("no spawn layouts")
	}
	for size, layouts := range a.Layouts {
		for _, l := range layouts {
			for _, team := range netconfig.Teams {
				if got := len(l.Slots[team]); got != size {
					return fmt.Errorf("layout %q: %s has %d slots, want %d", l.Name, team, got, size)
				}
			}
		}
	}
	return nil
}
