package config

import "fmt"

// GameMode is a fixed team size per side.
type GameMode int

const (
	Mode1v1 GameMode = iota + 1
	Mode2v2
	Mode3v3
)

var gameModeNames = map[GameMode]string{
	Mode1v1: "1v1",
	Mode2v2: "2v2",
	Mode3v3: "3v3",
}

// GameModes lists every supported mode.
var GameModes = []GameMode{Mode1v1, Mode2v2, Mode3v3}

func (m GameMode) String() string {
	if name, ok := gameModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// TeamSize is the number of players per side.
func (m GameMode) TeamSize() int {
	return int(m)
}

// Players is the total roster size for a full match.
func (m GameMode) Players() int {
	return 2 * int(m)
}

// Valid reports whether m is one of the supported modes.
func (m GameMode) Valid() bool {
	_, ok := gameModeNames[m]
	return ok
}

// ParseGameMode maps a wire string to a GameMode. Unknown strings are rejected
// so a queue can never hold a group that no match could ever complete.
func ParseGameMode(s string) (GameMode, bool) {
	for m, name := range gameModeNames {
		if name == s {
			return m, true
		}
	}
	return 0, false
}
