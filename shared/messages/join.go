package messages

// Hello is sent by a client after connecting. PlayerID may carry an id from a
// previous connection so ratings follow the player.
type Hello struct {
	Version  string
	Name     string
	PlayerID string
}

// Welcome is sent by the server on connect and again after Hello.
type Welcome struct {
	PlayerID   string
	ServerName string
	TickRate   int
}

// SessionJoined tells a player which session they were attached to.
type SessionJoined struct {
	SessionID string
	Code      string // join code, private rooms only
	Kind      int    // netconfig.SessionKind
	Mode      string
	Team      int // netconfig.Team
}

// SessionLeft is sent when the player is detached from their session.
type SessionLeft struct {
	SessionID string
	Reason    string
}
