package main

import (
	"testing"

	"github.com/automoto/carball-mp/network"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewFor_FindsSelfAndBall(t *testing.T) {
	a, err := arena.LoadDefault()
	require.NoError(t, err)

	frame := map[netconfig.ActorID]network.Entity{
		1: {
			Actor:     netcomponents.NetActorData{ID: 1, Kind: netconfig.ActorBall},
			Transform: netcomponents.NetTransformData{X: 100, Y: 50},
		},
		2: {
			Actor:     netcomponents.NetActorData{ID: 2, Kind: netconfig.ActorCar, PlayerID: "me", Team: netconfig.TeamRed},
			Transform: netcomponents.NetTransformData{X: 10, Y: 20, Angle: 1},
		},
		3: {
			Actor:     netcomponents.NetActorData{ID: 3, Kind: netconfig.ActorCar, PlayerID: "other"},
			Transform: netcomponents.NetTransformData{X: 300},
		},
	}

	v, ok := viewFor(frame, "me", netconfig.TeamRed, a, 7, true)
	require.True(t, ok)
	assert.Equal(t, uint64(7), v.Tick)
	assert.True(t, v.Active)
	assert.Equal(t, 10.0, v.Self.Pos.X)
	assert.Equal(t, 1.0, v.Self.Angle)
	assert.Equal(t, 100.0, v.Ball.X)
	assert.Equal(t, a.Goal(netconfig.TeamBlue).Center(), v.Attack)
}

func TestViewFor_NotReadyWithoutCar(t *testing.T) {
	a, err := arena.LoadDefault()
	require.NoError(t, err)

	frame := map[netconfig.ActorID]network.Entity{
		1: {Actor: netcomponents.NetActorData{ID: 1, Kind: netconfig.ActorBall}},
	}
	_, ok := viewFor(frame, "me", netconfig.TeamBlue, a, 1, true)
	assert.False(t, ok)
}

func TestMerge_FlagsOverrideProfile(t *testing.T) {
	p := network.Profile{Name: "saved", PlayerID: "id-1", Difficulty: "hard"}
	merge(&p, options{name: "flag"})

	assert.Equal(t, "flag", p.Name)
	assert.Equal(t, "id-1", p.PlayerID)
	assert.Equal(t, "1v1", p.Mode)
	assert.Equal(t, "hard", p.Difficulty)
}
