// Package netconfig defines lightweight types shared between client and server
// for network serialization. It must stay free of server-only dependencies so
// the bot client can import it without pulling in the simulation.
package netconfig

// SessionState is the lifecycle state of a match session.
type SessionState int

const (
	SessionForming          SessionState = iota // Roster assembled, not yet started
	SessionPrivateIdle                          // Private room waiting for a start command
	SessionCountdownToStart                     // Pre-round countdown (3, 2, 1, 0)
	SessionActive                               // Ball in play, timer running
	SessionGoalPause                            // Goal scored, timer frozen
	SessionEnded                                // Final stats sent
)

var sessionStateNames = map[SessionState]string{
	SessionForming:          "forming",
	SessionPrivateIdle:      "private-idle",
	SessionCountdownToStart: "countdown",
	SessionActive:           "active",
	SessionGoalPause:        "goal-pause",
	SessionEnded:            "ended",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// InMatch reports whether the state belongs to a started match.
func (s SessionState) InMatch() bool {
	return s == SessionCountdownToStart || s == SessionActive || s == SessionGoalPause
}

// SessionKind distinguishes matchmade sessions from private rooms.
type SessionKind int

const (
	KindPublic SessionKind = iota
	KindPrivate
)

func (k SessionKind) String() string {
	if k == KindPrivate {
		return "private"
	}
	return "public"
}

// Team is a side of the field. Blue defends the left goal.
type Team int

const (
	TeamNone Team = iota
	TeamBlue
	TeamRed
)

func (t Team) String() string {
	switch t {
	case TeamBlue:
		return "blue"
	case TeamRed:
		return "red"
	}
	return "none"
}

// Opponent returns the other side. TeamNone has no opponent.
func (t Team) Opponent() Team {
	switch t {
	case TeamBlue:
		return TeamRed
	case TeamRed:
		return TeamBlue
	}
	return TeamNone
}

// ParseTeam maps a wire string to a Team.
func ParseTeam(s string) (Team, bool) {
	switch s {
	case "blue":
		return TeamBlue, true
	case "red":
		return TeamRed, true
	}
	return TeamNone, false
}

// Teams lists the playable sides in a fixed order.
var Teams = [2]Team{TeamBlue, TeamRed}

// ActorID identifies an actor within one session.
type ActorID uint32

// ActorKind is what an actor represents on the field.
type ActorKind int

const (
	ActorCar ActorKind = iota + 1
	ActorBall
)

func (k ActorKind) String() string {
	switch k {
	case ActorCar:
		return "car"
	case ActorBall:
		return "ball"
	}
	return "unknown"
}

// Key names carried by KeyCommand.
const (
	KeyTurnLeft  = "turn-left"
	KeyTurnRight = "turn-right"
	KeyThrottle  = "throttle"
	KeyReverse   = "reverse"
	KeyBoost     = "boost"
	KeyFlip      = "flip"
)

// ValidKey reports whether key is one the simulation reads.
func ValidKey(key string) bool {
	switch key {
	case KeyTurnLeft, KeyTurnRight, KeyThrottle, KeyReverse, KeyBoost, KeyFlip:
		return true
	}
	return false
}

// Mouse buttons map onto keys: primary boosts, secondary flips.
const (
	ButtonPrimary   = 0
	ButtonSecondary = 2
)

// ButtonKey returns the key a mouse button is bound to.
func ButtonKey(button int) (string, bool) {
	switch button {
	case ButtonPrimary:
		return KeyBoost, true
	case ButtonSecondary:
		return KeyFlip, true
	}
	return "", false
}

// Flag names carried by FlagUpdate.
const (
	FlagBoosting = "boosting"
	FlagFlipping = "flipping"
)
