package netcomponents

import (
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/yohamta/donburi"
)

type NetTransformData struct {
	X, Y  float64
	Angle float64 // radians, 0 faces +X
}

var NetTransform = donburi.NewComponentType[NetTransformData]()

func (d NetTransformData) Transform() gamemath.Transform {
	return gamemath.Transform{Pos: gamemath.Vec2{X: d.X, Y: d.Y}, Angle: d.Angle}
}

// FromTransform converts a simulation transform to its network form.
func FromTransform(t gamemath.Transform) NetTransformData {
	return NetTransformData{X: t.Pos.X, Y: t.Pos.Y, Angle: t.Angle}
}

// LerpNetTransform interpolates between two transforms. Angles take the
// shortest arc. t >= 1 yields to exactly.
func LerpNetTransform(from, to NetTransformData, t float64) *NetTransformData {
	if t >= 1 {
		out := to
		return &out
	}
	if t <= 0 {
		out := from
		return &out
	}
	return &NetTransformData{
		X:     from.X + (to.X-from.X)*t,
		Y:     from.Y + (to.Y-from.Y)*t,
		Angle: gamemath.LerpAngle(from.Angle, to.Angle, t),
	}
}
