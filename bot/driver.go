// Package bot drives a car through the same commands a human client sends.
// A Driver never touches the simulation: it reads a View of the field and
// answers with key and pointer commands, so it works both in-process on the
// server and over the wire in the headless client.
package bot

import (
	"fmt"
	"math"
	"strings"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// aimReach is how far out, as a share of the pointer range, the driver
// parks its pointer. Staying inside the range keeps the server-side clamp
// from skewing the driver's own pointer estimate.
const aimReach = 0.8

// View is what a driver sees of the field on one tick.
type View struct {
	Tick   uint64
	Self   gamemath.Transform
	Ball   gamemath.Vec2
	Attack gamemath.Vec2 // centre of the goal mouth the bot shoots at
	Active bool          // ball in play and the car unlocked
}

// Commands is the inbound command surface a driver talks to.
type Commands interface {
	Key(key string, down bool) error
	MouseMove(dx, dy float64) error
}

// Driver turns field views into commands. It re-plans every ReactionDelay
// ticks and eases its pointer towards the planned heading in between.
type Driver struct {
	tuning      config.BotDifficultyConfig
	sensitivity float64
	reach       float64

	pointer gamemath.Vec2 // where the server's pointer should sit
	aimX    *gween.Tween
	aimY    *gween.Tween
	target  gamemath.Vec2
	planned bool
	wait    int

	keys map[string]bool
}

func NewDriver(d config.BotDifficulty) *Driver {
	return &Driver{
		tuning:      config.BotTuning(d),
		sensitivity: config.Car.DefaultPointerSensitivity,
		reach:       config.Car.DefaultPointerRange * aimReach,
		keys:        make(map[string]bool),
	}
}

// ParseDifficulty maps "easy", "normal" or "hard" to a difficulty.
func ParseDifficulty(s string) (config.BotDifficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return config.BotDifficultyEasy, nil
	case "", "normal":
		return config.BotDifficultyNormal, nil
	case "hard":
		return config.BotDifficultyHard, nil
	}
	return config.Bot.Default, fmt.Errorf("unknown bot difficulty %q", s)
}

// Drive plans from v and sends whatever changed to out.
func (d *Driver) Drive(v View, out Commands) error {
	if !v.Active {
		d.planned = false
		d.wait = 0
		return d.releaseAll(out)
	}

	if d.wait > 0 {
		d.wait--
	} else {
		d.plan(v)
	}

	if err := d.movePointer(out); err != nil {
		return err
	}

	heading := d.target.Sub(v.Self.Pos).Angle()
	aligned := math.Abs(gamemath.WrapAngle(heading-v.Self.Angle)) < d.tuning.AimTolerance
	dist := v.Self.Pos.Dist(v.Ball)

	flip := aligned && dist < d.tuning.FlipDistance
	boost := aligned && !flip && dist > d.tuning.BoostDistance
	for _, k := range []struct {
		key  string
		down bool
	}{
		{netconfig.KeyThrottle, true},
		{netconfig.KeyBoost, boost},
		{netconfig.KeyFlip, flip},
	} {
		if err := d.setKey(out, k.key, k.down); err != nil {
			return err
		}
	}
	return nil
}

// plan picks where to drive. Behind the ball (relative to the attacked goal)
// the car drives straight at it; otherwise it circles to a point behind the
// ball first.
func (d *Driver) plan(v View) {
	shot := v.Attack.Sub(v.Ball).Normalize()
	if v.Ball.Sub(v.Self.Pos).Dot(shot) > 0 {
		d.target = v.Ball
	} else {
		d.target = v.Ball.Sub(shot.Scale(d.tuning.ApproachOffset))
	}

	aim := gamemath.Heading(d.target.Sub(v.Self.Pos).Angle()).Scale(d.reach)
	ticks := float32(max(d.tuning.ReactionDelay, 1))
	d.aimX = gween.New(float32(d.pointer.X), float32(aim.X), ticks, ease.OutQuad)
	d.aimY = gween.New(float32(d.pointer.Y), float32(aim.Y), ticks, ease.OutQuad)
	d.planned = true
	d.wait = d.tuning.ReactionDelay
}

// movePointer advances the pointer tween by one tick and sends the delta in
// raw mouse units.
func (d *Driver) movePointer(out Commands) error {
	if !d.planned {
		return nil
	}
	x, _ := d.aimX.Update(1)
	y, _ := d.aimY.Update(1)
	next := gamemath.Vec2{X: float64(x), Y: float64(y)}
	delta := next.Sub(d.pointer)
	if delta.IsZero() {
		return nil
	}
	d.pointer = next
	return out.MouseMove(delta.X/d.sensitivity, delta.Y/d.sensitivity)
}

func (d *Driver) setKey(out Commands, key string, down bool) error {
	if d.keys[key] == down {
		return nil
	}
	d.keys[key] = down
	return out.Key(key, down)
}

func (d *Driver) releaseAll(out Commands) error {
	for key, down := range d.keys {
		if !down {
			continue
		}
		if err := d.setKey(out, key, false); err != nil {
			return err
		}
	}
	return nil
}

// Pointer returns where the driver believes the server-side pointer sits.
func (d *Driver) Pointer() gamemath.Vec2 {
	return d.pointer
}
