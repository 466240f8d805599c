package bot

import (
	"testing"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyEvent struct {
	key  string
	down bool
}

type recorder struct {
	keys  []keyEvent
	moved gamemath.Vec2
	moves int
	held  map[string]bool
}

func newRecorder() *recorder {
	return &recorder{held: make(map[string]bool)}
}

func (r *recorder) Key(key string, down bool) error {
	r.keys = append(r.keys, keyEvent{key, down})
	r.held[key] = down
	return nil
}

func (r *recorder) MouseMove(dx, dy float64) error {
	r.moved = r.moved.Add(gamemath.Vec2{X: dx, Y: dy})
	r.moves++
	return nil
}

func view(self gamemath.Vec2, angle float64, ball gamemath.Vec2) View {
	return View{
		Self:   gamemath.Transform{Pos: self, Angle: angle},
		Ball:   ball,
		Attack: gamemath.Vec2{X: 1200, Y: 0},
		Active: true,
	}
}

func TestDriver_ThrottleOnFirstActiveTick(t *testing.T) {
	d := NewDriver(config.BotDifficultyNormal)
	out := newRecorder()

	require.NoError(t, d.Drive(view(gamemath.Vec2{}, 0, gamemath.Vec2{X: 200}), out))

	assert.True(t, out.held[netconfig.KeyThrottle])
	assert.False(t, out.held[netconfig.KeyBoost])
	assert.False(t, out.held[netconfig.KeyFlip])
}

func TestDriver_KeysSentOnlyOnChange(t *testing.T) {
	d := NewDriver(config.BotDifficultyNormal)
	out := newRecorder()
	v := view(gamemath.Vec2{}, 0, gamemath.Vec2{X: 200})

	for range 5 {
		require.NoError(t, d.Drive(v, out))
	}

	assert.Equal(t, []keyEvent{{netconfig.KeyThrottle, true}}, out.keys)
}

func TestDriver_PointerSettlesOnHeading(t *testing.T) {
	d := NewDriver(config.BotDifficultyNormal)
	out := newRecorder()
	v := view(gamemath.Vec2{}, 0, gamemath.Vec2{X: 200})

	delay := config.BotTuning(config.BotDifficultyNormal).ReactionDelay
	for range delay {
		require.NoError(t, d.Drive(v, out))
	}

	reach := config.Car.DefaultPointerRange * aimReach
	sens := config.Car.DefaultPointerSensitivity
	assert.InDelta(t, reach, out.moved.X*sens, 1e-3)
	assert.InDelta(t, 0, out.moved.Y*sens, 1e-3)
	assert.InDelta(t, reach, d.Pointer().X, 1e-3)

	// Settled: no further pointer traffic until the next plan.
	moves := out.moves
	require.NoError(t, d.Drive(v, out))
	assert.Equal(t, moves, out.moves)
}

func TestDriver_CirclesBehindBall(t *testing.T) {
	d := NewDriver(config.BotDifficultyHard)
	out := newRecorder()
	// Car sits between the ball and the goal it attacks.
	v := view(gamemath.Vec2{X: 600}, 0, gamemath.Vec2{X: 300})

	delay := config.BotTuning(config.BotDifficultyHard).ReactionDelay
	for range delay {
		require.NoError(t, d.Drive(v, out))
	}

	assert.Less(t, d.Pointer().X, 0.0, "pointer should face away from the goal")
	assert.False(t, out.held[netconfig.KeyBoost], "not aligned, no boost")
}

func TestDriver_BoostsWhenAlignedAndFar(t *testing.T) {
	d := NewDriver(config.BotDifficultyNormal)
	out := newRecorder()

	require.NoError(t, d.Drive(view(gamemath.Vec2{}, 0, gamemath.Vec2{X: 800}), out))

	assert.True(t, out.held[netconfig.KeyBoost])
	assert.False(t, out.held[netconfig.KeyFlip])
}

func TestDriver_FlipsWhenAlignedAndClose(t *testing.T) {
	d := NewDriver(config.BotDifficultyNormal)
	out := newRecorder()

	require.NoError(t, d.Drive(view(gamemath.Vec2{}, 0, gamemath.Vec2{X: 30}), out))

	assert.True(t, out.held[netconfig.KeyFlip])
	assert.False(t, out.held[netconfig.KeyBoost])
}

func TestDriver_ReleasesKeysWhenInactive(t *testing.T) {
	d := NewDriver(config.BotDifficultyNormal)
	out := newRecorder()
	v := view(gamemath.Vec2{}, 0, gamemath.Vec2{X: 800})
	require.NoError(t, d.Drive(v, out))
	require.True(t, out.held[netconfig.KeyBoost])

	v.Active = false
	require.NoError(t, d.Drive(v, out))

	for key, down := range out.held {
		assert.False(t, down, key)
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    config.BotDifficulty
		wantErr bool
	}{
		{"easy", config.BotDifficultyEasy, false},
		{"", config.BotDifficultyNormal, false},
		{" HARD ", config.BotDifficultyHard, false},
		{"impossible", config.Bot.Default, true},
	}
	for _, tt := range tests {
		got, err := ParseDifficulty(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
