package arena

import (
	"math"
	"math/rand"
	"testing"

	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadArena(t *testing.T) *Arena {
	t.Helper()
	a, err := LoadDefault()
	require.NoError(t, err)
	return a
}

func TestLoadDefault(t *testing.T) {
	a := loadArena(t)

	assert.Equal(t, 1280.0, a.Width)
	assert.Equal(t, 720.0, a.Height)
	assert.Len(t, a.Walls, 8)
	assert.Equal(t, gamemath.Vec2{X: 640, Y: 360}, a.Kickoff)

	blue := a.Goal(netconfig.TeamBlue)
	red := a.Goal(netconfig.TeamRed)
	assert.Less(t, blue.Center().X, a.Width/2, "blue defends the left goal")
	assert.Greater(t, red.Center().X, a.Width/2)

	require.Len(t, a.Layouts[1], 3)
	assert.Equal(t, []string{"diagonal-a", "diagonal-b", "near-far"},
		[]string{a.Layouts[1][0].Name, a.Layouts[1][1].Name, a.Layouts[1][2].Name})
	assert.Len(t, a.Layouts[2], 2)
	assert.Len(t, a.Layouts[3], 2)
}

func TestLoadDefault_SlotFacing(t *testing.T) {
	a := loadArena(t)
	for _, l := range a.Layouts[1] {
		if l.Name != "near-far" {
			continue
		}
		assert.InDelta(t, 0, l.Slots[netconfig.TeamBlue][0].Angle, 1e-9)
		assert.InDelta(t, math.Pi, math.Abs(l.Slots[netconfig.TeamRed][0].Angle), 1e-9)
	}
}

func TestArena_LayoutSize(t *testing.T) {
	a := loadArena(t)

	size, err := a.LayoutSize(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	size, err = a.LayoutSize(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	_, err = a.LayoutSize(4, 1)
	assert.Error(t, err)
}

func TestArena_PlaceDistinctSlots(t *testing.T) {
	a := loadArena(t)
	rng := rand.New(rand.NewSource(7))

	for b := 0; b <= 3; b++ {
		for r := 0; r <= 3; r++ {
			blue := ids("b", b)
			red := ids("r", r)
			for round := 0; round < 20; round++ {
				p, err := a.Place(rng, blue, red)
				require.NoError(t, err)
				require.Len(t, p.Slots, b+r)

				seen := make(map[gamemath.Vec2]bool)
				for _, s := range p.Slots {
					assert.False(t, seen[s.Pos], "slot shared in %dv%d", b, r)
					seen[s.Pos] = true
				}
				for _, id := range blue {
					assert.Less(t, p.Slots[id].Pos.X, a.Width/2)
				}
				for _, id := range red {
					assert.Greater(t, p.Slots[id].Pos.X, a.Width/2)
				}
			}
		}
	}
}

func TestArena_PlaceVariety(t *testing.T) {
	a := loadArena(t)
	rng := rand.New(rand.NewSource(1))

	layouts := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p, err := a.Place(rng, []string{"a"}, []string{"b"})
		require.NoError(t, err)
		layouts[p.Layout] = true
	}
	assert.Len(t, layouts, 3)
}

func TestArena_MouthPoints(t *testing.T) {
	a := loadArena(t)

	pts := a.MouthPoints(netconfig.TeamBlue, 3)
	require.Len(t, pts, 3)
	assert.Equal(t, gamemath.Vec2{X: 64, Y: 280}, pts[0])
	assert.Equal(t, gamemath.Vec2{X: 64, Y: 360}, pts[1])
	assert.Equal(t, gamemath.Vec2{X: 64, Y: 440}, pts[2])

	pts = a.MouthPoints(netconfig.TeamRed, 3)
	assert.Equal(t, 1216.0, pts[0].X)
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('0'+i))
	}
	return out
}
