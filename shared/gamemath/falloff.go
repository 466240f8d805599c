package gamemath

import "github.com/tanema/gween/ease"

// RadialFalloff returns the impulse magnitude at dist from an explosion
// origin: max at the origin, decaying linearly to zero at radius.
func RadialFalloff(dist, radius, max float64) float64 {
	if radius <= 0 || dist >= radius {
		return 0
	}
	if dist < 0 {
		dist = 0
	}
	return float64(ease.Linear(float32(dist), float32(max), float32(-max), float32(radius)))
}

// ExplosionImpulse is the outward impulse felt at target from an explosion
// at origin. A target sitting exactly on the origin gets no impulse.
func ExplosionImpulse(origin, target Vec2, radius, max float64) Vec2 {
	dir := target.Sub(origin)
	mag := RadialFalloff(dir.Len(), radius, max)
	if mag == 0 {
		return Vec2{}
	}
	return dir.Normalize().Scale(mag)
}
