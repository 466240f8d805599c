package messages

import (
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
)

// ActorAdded is sent when an actor enters the field and on attach for every
// live actor.
type ActorAdded struct {
	Actor     netcomponents.NetActorData
	Transform netcomponents.NetTransformData
	Flags     netcomponents.NetFlagsData
}

// ActorRemoved is sent when an actor leaves the field.
type ActorRemoved struct {
	ID netconfig.ActorID
}

// TransformPatch carries only the fields that changed since the last broadcast.
type TransformPatch struct {
	ID    netconfig.ActorID
	Pos   *gamemath.Vec2
	Angle *float64
}

// Empty reports whether the patch carries no field.
func (p TransformPatch) Empty() bool {
	return p.Pos == nil && p.Angle == nil
}

// Apply returns t with the patched fields replaced.
func (p TransformPatch) Apply(t netcomponents.NetTransformData) netcomponents.NetTransformData {
	if p.Pos != nil {
		t.X, t.Y = p.Pos.X, p.Pos.Y
	}
	if p.Angle != nil {
		t.Angle = *p.Angle
	}
	return t
}

// StatePatch is broadcast after a tick when at least one transform changed.
type StatePatch struct {
	Tick            uint64
	Timestamp       int64 // server wall clock, Unix ms
	NonInterpolated bool  // consumers snap instead of smoothing
	Patches         []TransformPatch
}

// FlagUpdate carries the full flag set of one actor whenever any flag changes.
type FlagUpdate struct {
	ID    netconfig.ActorID
	Flags netcomponents.NetFlagsData
}

// StateChanged is broadcast on every session state transition.
type StateChanged struct {
	State netconfig.SessionState
}

// CountdownEvent is broadcast once per second before play: 3, 2, 1, 0.
type CountdownEvent struct {
	Value int
}

// ClockEvent is broadcast every second while the match timer runs.
type ClockEvent struct {
	Remaining int // seconds
}

// ScoreEvent is broadcast when a goal is scored.
type ScoreEvent struct {
	Blue, Red int
	ScorerID  string // player credited, empty if nobody touched the ball
	Team      netconfig.Team
	OwnGoal   bool
}

// PlayerStats are one player's per-match statistics.
type PlayerStats struct {
	PlayerID    string
	Name        string
	Team        netconfig.Team
	Goals       int
	Touches     int
	Flips       int
	Boosts      int
	RatingDelta float64
}

// MatchEnded carries the final score and aggregated statistics.
type MatchEnded struct {
	Blue, Red int
	Winner    netconfig.Team // TeamNone on a draw
	Reason    string
	Stats     []PlayerStats
}
