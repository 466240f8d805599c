package session

// Channel is the per-session publish/subscribe surface a transport provides.
type Channel interface {
	Join(sessionID, playerID string)
	Leave(sessionID, playerID string)
	Broadcast(sessionID string, msg any)
	SendTo(playerID string, msg any)
}
