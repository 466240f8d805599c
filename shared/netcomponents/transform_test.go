package netcomponents

import (
	"math"
	"testing"

	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
)

func TestLerpNetTransform_Endpoints(t *testing.T) {
	from := NetTransformData{X: 0, Y: 10, Angle: 0}
	to := NetTransformData{X: 10, Y: 20, Angle: 1}

	assert.Equal(t, from, *LerpNetTransform(from, to, 0))
	assert.Equal(t, to, *LerpNetTransform(from, to, 1))
	assert.Equal(t, to, *LerpNetTransform(from, to, 1.5))

	mid := LerpNetTransform(from, to, 0.5)
	assert.InDelta(t, 5, mid.X, 1e-9)
	assert.InDelta(t, 15, mid.Y, 1e-9)
	assert.InDelta(t, 0.5, mid.Angle, 1e-9)
}

func TestLerpNetTransform_ShortestArc(t *testing.T) {
	from := NetTransformData{Angle: math.Pi - 0.1}
	to := NetTransformData{Angle: -math.Pi + 0.1}

	mid := LerpNetTransform(from, to, 0.5)
	assert.InDelta(t, math.Pi, math.Abs(mid.Angle), 1e-9)
}

func TestNetFlagsData_Set(t *testing.T) {
	var f NetFlagsData
	assert.True(t, f.Set(netconfig.FlagBoosting, true))
	assert.False(t, f.Set(netconfig.FlagBoosting, true))
	assert.True(t, f.Boosting)
	assert.False(t, f.Set("unknown", true))
}
