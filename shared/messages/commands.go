package messages

// Commands sent from client to server. Every command is answered with an Ack.

// QueueCommand enters matchmaking for a mode ("1v1", "2v2", "3v3").
type QueueCommand struct {
	Mode string
}

// DequeueCommand leaves matchmaking.
type DequeueCommand struct{}

// CreateGameCommand opens a private room. The Ack carries the join code.
type CreateGameCommand struct {
	Mode string
}

type JoinGameCommand struct {
	Code string
}

// TeamCommand switches side ("blue" or "red") in a private room.
type TeamCommand struct {
	Team string
}

// SettingsCommand patches per-player settings. Nil fields are left unchanged.
type SettingsCommand struct {
	PointerSensitivity *float64
	PointerRange       *float64
}

type StartCommand struct{}

type EndCommand struct{}

type LeaveGameCommand struct{}

// AddBotCommand attaches an in-process bot to a private room.
type AddBotCommand struct {
	Team string
}

// KeyCommand is a keydown (Down=true) or keyup.
type KeyCommand struct {
	Key  string
	Down bool
}

// MouseMoveCommand carries a relative pointer movement.
type MouseMoveCommand struct {
	DX, DY float64
}

// MouseButtonCommand is a mousedown (Down=true) or mouseup.
type MouseButtonCommand struct {
	Button int
	Down   bool
}

// Ack answers a command. Code is set for create-game.
type Ack struct {
	Command string
	OK      bool
	Reason  string
	Code    string
}
