package gamemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRect_ContainsCircle(t *testing.T) {
	r := RectFromXYWH(0, 0, 100, 50)

	assert.True(t, r.ContainsCircle(Vec2{50, 25}, 10))
	assert.True(t, r.ContainsCircle(Vec2{10, 10}, 10))
	assert.False(t, r.ContainsCircle(Vec2{5, 25}, 10), "partially outside")
	assert.False(t, r.ContainsCircle(Vec2{200, 25}, 10))
}

func TestOverlap_Circles(t *testing.T) {
	a := Transform{Pos: Vec2{0, 0}}
	b := Transform{Pos: Vec2{15, 0}}

	n, depth, ok := Overlap(a, Circle(10), b, Circle(10))
	assert.True(t, ok)
	assert.InDelta(t, 5, depth, 1e-9)
	assert.InDelta(t, 1, n.X, 1e-9)

	_, _, ok = Overlap(a, Circle(5), b, Circle(5))
	assert.False(t, ok)
}

func TestOverlap_BoxCircleNormalDirection(t *testing.T) {
	box := Transform{Pos: Vec2{0, 0}}
	ball := Transform{Pos: Vec2{0, 25}}

	n, depth, ok := Overlap(box, Rectangle(20, 20), ball, Circle(10))
	assert.True(t, ok)
	assert.InDelta(t, 5, depth, 1e-9)
	assert.InDelta(t, 1, n.Y, 1e-9)

	n, _, ok = Overlap(ball, Circle(10), box, Rectangle(20, 20))
	assert.True(t, ok)
	assert.InDelta(t, -1, n.Y, 1e-9)
}

func TestOverlap_RotatedBox(t *testing.T) {
	box := Transform{Pos: Vec2{0, 0}, Angle: math.Pi / 2}
	// Rotated 90 degrees the long side points along Y.
	_, _, ok := Overlap(box, Rectangle(40, 5), Transform{Pos: Vec2{0, 40}}, Circle(5))
	assert.True(t, ok)
	_, _, ok = Overlap(box, Rectangle(40, 5), Transform{Pos: Vec2{40, 0}}, Circle(5))
	assert.False(t, ok)
}

func TestGeometry_BoundingRadius(t *testing.T) {
	assert.Equal(t, 7.0, Circle(7).BoundingRadius())
	assert.InDelta(t, 5, Rectangle(3, 4).BoundingRadius(), 1e-9)
	assert.Equal(t, "circle", Circle(1).Kind.String())
}

func TestRadialFalloff(t *testing.T) {
	assert.InDelta(t, 100, RadialFalloff(0, 200, 100), 1e-4)
	assert.InDelta(t, 50, RadialFalloff(100, 200, 100), 1e-4)
	assert.Equal(t, 0.0, RadialFalloff(200, 200, 100))
	assert.Equal(t, 0.0, RadialFalloff(500, 200, 100))

	imp := ExplosionImpulse(Vec2{0, 0}, Vec2{0, 100}, 200, 100)
	assert.InDelta(t, 0, imp.X, 1e-9)
	assert.InDelta(t, 50, imp.Y, 1e-4)
	assert.True(t, ExplosionImpulse(Vec2{1, 1}, Vec2{1, 1}, 200, 100).IsZero())
}

func TestWrapAngle(t *testing.T) {
	assert.InDelta(t, 0, WrapAngle(2*math.Pi), 1e-9)
	assert.InDelta(t, -math.Pi/2, WrapAngle(3*math.Pi/2), 1e-9)
	assert.InDelta(t, 0.5, LerpAngle(0, 1, 0.5), 1e-9)
}
