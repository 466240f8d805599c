package session

import "errors"

var (
	ErrDestroyed       = errors.New("session destroyed")
	ErrAlreadyJoined   = errors.New("player already in session")
	ErrUnknownPlayer   = errors.New("player not in session")
	ErrInvalidTeam     = errors.New("invalid team")
	ErrTeamFull        = errors.New("team is full")
	ErrNotPrivate      = errors.New("only allowed in a private room")
	ErrWrongState      = errors.New("not allowed in the current session state")
	ErrInvalidKey      = errors.New("unknown key")
	ErrInvalidButton   = errors.New("unknown mouse button")
	ErrInvalidSettings = errors.New("settings must be positive and finite")
	ErrInvalidInput    = errors.New("pointer movement must be finite")
)
