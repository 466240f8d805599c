package netcomponents

import (
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/yohamta/donburi"
)

type NetActorData struct {
	ID       netconfig.ActorID
	Kind     netconfig.ActorKind
	Team     netconfig.Team // TeamNone for the ball
	PlayerID string         // owning player, empty for the ball
	Geometry gamemath.Geometry
}

var NetActor = donburi.NewComponentType[NetActorData]()

// NetFlagsData holds boolean actor state. It is always sent whole, never diffed.
type NetFlagsData struct {
	Boosting bool
	Flipping bool
}

var NetFlags = donburi.NewComponentType[NetFlagsData]()

// Set updates a named flag and reports whether it changed.
func (f *NetFlagsData) Set(name string, v bool) bool {
	var p *bool
	switch name {
	case netconfig.FlagBoosting:
		p = &f.Boosting
	case netconfig.FlagFlipping:
		p = &f.Flipping
	default:
		return false
	}
	if *p == v {
		return false
	}
	*p = v
	return true
}
