package main

import (
	"github.com/automoto/carball-mp/bot"
	"github.com/automoto/carball-mp/network"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// viewFor builds what the driver sees from one sampled frame. ok is false
// until both the player's car and the ball are known.
func viewFor(frame map[netconfig.ActorID]network.Entity, playerID string, team netconfig.Team, a *arena.Arena, tick uint64, active bool) (bot.View, bool) {
	v := bot.View{Tick: tick, Active: active}
	var haveSelf, haveBall bool
	for _, e := range frame {
		switch {
		case e.Actor.Kind == netconfig.ActorBall:
			v.Ball = e.Transform.Transform().Pos
			haveBall = true
		case e.Actor.Kind == netconfig.ActorCar && e.Actor.PlayerID == playerID:
			v.Self = e.Transform.Transform()
			haveSelf = true
		}
	}
	if !haveSelf || !haveBall {
		return bot.View{}, false
	}
	v.Attack = a.Goal(team.Opponent()).Center()
	return v, true
}
