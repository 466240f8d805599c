// Package game is the transport-independent front of the server. The Hub
// knows every connected player, routes their commands to the matchmaking
// queue or their session, and answers each command with an Ack.
//
// A Hub is not safe for concurrent use. The server calls it from the
// simulation loop only, the same goroutine its sessions tick on.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/server/matchmaking"
	"github.com/automoto/carball-mp/server/session"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/automoto/carball-mp/storage"
	"github.com/rs/zerolog"
)

var (
	ErrNoSession      = errors.New("not in a session")
	ErrUnknownCode    = errors.New("unknown room code")
	ErrInSession      = errors.New("already in a session")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrUnknownCommand = errors.New("unknown command")
)

const (
	storeTimeout = 2 * time.Second
	maxNameLen   = 24

	reasonLeft         = "left"
	reasonDisconnected = "disconnected"
	reasonNoHumans     = "no-humans"
)

// Options wires a Hub to the rest of the server.
type Options struct {
	Registry      *session.Registry
	Queue         *matchmaking.Queue
	Store         storage.Store
	Channel       session.Channel // used for direct replies
	Rand          *rand.Rand      // team assignment
	ServerName    string
	BotDifficulty config.BotDifficulty
	// OnRebind lets the transport follow a resumed id before the new Welcome
	// is sent.
	OnRebind func(oldID, newID string)
	Logger   zerolog.Logger
}

// Player is a connected client or an in-process bot.
type Player struct {
	ID       string
	Name     string
	Bot      bool
	Session  *session.Session
	Settings session.SettingsPatch // last accepted settings, re-applied on every attach
}

type Hub struct {
	registry   *session.Registry
	queue      *matchmaking.Queue
	store      storage.Store
	ch         session.Channel
	rng        *rand.Rand
	serverName string
	difficulty config.BotDifficulty
	onRebind   func(oldID, newID string)
	log        zerolog.Logger

	players map[string]*Player
	bots    map[string]*botSeat
	botSeq  int
}

func NewHub(opts Options) *Hub {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Hub{
		registry:   opts.Registry,
		queue:      opts.Queue,
		store:      opts.Store,
		ch:         opts.Channel,
		rng:        rng,
		serverName: opts.ServerName,
		difficulty: opts.BotDifficulty,
		onRebind:   opts.OnRebind,
		log:        opts.Logger.With().Str("component", "hub").Logger(),
		players:    make(map[string]*Player),
		bots:       make(map[string]*botSeat),
	}
}

// Connect registers a new client under id and welcomes it.
func (h *Hub) Connect(id string) {
	h.players[id] = &Player{ID: id, Name: defaultName(id)}
	h.welcome(id)
	h.log.Info().Str("player", id).Msg("Player connected")
}

// Hello names the player and optionally resumes an earlier id so ratings
// follow them. It returns the id the connection is now known by. An id is
// only resumed while the connection is idle and the old id is not in use.
func (h *Hub) Hello(id string, msg messages.Hello) (string, error) {
	p, ok := h.players[id]
	if !ok {
		return id, ErrUnknownPlayer
	}
	if name := cleanName(msg.Name); name != "" {
		p.Name = name
	}

	want := strings.TrimSpace(msg.PlayerID)
	if want != "" && want != id {
		if _, taken := h.players[want]; taken {
			h.log.Warn().Str("player", id).Str("resume", want).Msg("Resume refused, id in use")
		} else if p.Session != nil || h.queue.Contains(id) {
			h.log.Warn().Str("player", id).Str("resume", want).Msg("Resume refused, player busy")
		} else {
			delete(h.players, id)
			p.ID = want
			h.players[want] = p
			if h.onRebind != nil {
				h.onRebind(id, want)
			}
			h.log.Info().Str("from", id).Str("to", want).Msg("Player resumed id")
		}
	}
	h.welcome(p.ID)
	return p.ID, nil
}

func (h *Hub) welcome(id string) {
	h.ch.SendTo(id, messages.Welcome{
		PlayerID:   id,
		ServerName: h.serverName,
		TickRate:   config.Net.TickRate,
	})
}

// Disconnect drops a client: out of the queue, out of its session, forgotten.
func (h *Hub) Disconnect(id string) {
	p, ok := h.players[id]
	if !ok {
		return
	}
	if h.queue.Contains(id) {
		h.dequeue(id)
	}
	h.detach(p, reasonDisconnected)
	delete(h.players, id)
	h.log.Info().Str("player", id).Msg("Player disconnected")
}

// Player returns a copy of a connected player.
func (h *Hub) Player(id string) (Player, bool) {
	p, ok := h.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (h *Hub) Len() int {
	return len(h.players)
}

// Sessions summarises live sessions.
func (h *Hub) Sessions() []session.Info {
	return h.registry.Infos()
}

// Groups lists the waiting matchmaking groups.
func (h *Hub) Groups() []matchmaking.Group {
	return h.queue.Groups()
}

// Handle runs one command for playerID and acknowledges it. Input commands
// are only acknowledged when rejected. The returned error is the rejection
// reason, nil on success.
func (h *Hub) Handle(playerID string, cmd any) error {
	name := commandName(cmd)
	p, ok := h.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}

	code, err := h.dispatch(p, cmd)
	if err != nil {
		h.log.Warn().Err(err).Str("player", p.ID).Str("command", name).Msg("Command rejected")
	} else {
		h.log.Debug().Str("player", p.ID).Str("command", name).Msg("Command")
	}
	if p.Bot || (isInput(cmd) && err == nil) {
		return err
	}
	ack := messages.Ack{Command: name, OK: err == nil, Code: code}
	if err != nil {
		ack.Reason = err.Error()
	}
	h.ch.SendTo(p.ID, ack)
	return err
}

func (h *Hub) dispatch(p *Player, cmd any) (string, error) {
	switch c := cmd.(type) {
	case messages.QueueCommand:
		return "", h.enqueue(p, c.Mode)
	case messages.DequeueCommand:
		if !h.queue.Contains(p.ID) {
			return "", matchmaking.ErrNotQueued
		}
		h.dequeue(p.ID)
		return "", nil
	case messages.CreateGameCommand:
		return h.createGame(p, c.Mode)
	case messages.JoinGameCommand:
		return "", h.joinGame(p, c.Code)
	case messages.TeamCommand:
		return "", h.setTeam(p, c.Team)
	case messages.SettingsCommand:
		return "", h.settings(p, session.SettingsPatch{
			PointerSensitivity: c.PointerSensitivity,
			PointerRange:       c.PointerRange,
		})
	case messages.StartCommand:
		return "", h.withSession(p, func(s *session.Session) error { return s.Start() })
	case messages.EndCommand:
		return "", h.withSession(p, func(s *session.Session) error { return s.End() })
	case messages.LeaveGameCommand:
		if p.Session == nil {
			return "", ErrNoSession
		}
		h.detach(p, reasonLeft)
		return "", nil
	case messages.AddBotCommand:
		return "", h.addBot(p, c.Team)
	case messages.KeyCommand:
		return "", h.withSession(p, func(s *session.Session) error { return s.Key(p.ID, c.Key, c.Down) })
	case messages.MouseMoveCommand:
		return "", h.withSession(p, func(s *session.Session) error { return s.MouseMove(p.ID, c.DX, c.DY) })
	case messages.MouseButtonCommand:
		return "", h.withSession(p, func(s *session.Session) error { return s.MouseButton(p.ID, c.Button, c.Down) })
	}
	return "", fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
}

func (h *Hub) withSession(p *Player, fn func(*session.Session) error) error {
	if p.Session == nil || p.Session.Destroyed() {
		return ErrNoSession
	}
	return fn(p.Session)
}

// free readies a player for a new session. A finished session is left
// automatically; a running one blocks.
func (h *Hub) free(p *Player) error {
	if p.Session == nil {
		return nil
	}
	if p.Session.State() != netconfig.SessionEnded {
		return ErrInSession
	}
	h.detach(p, reasonLeft)
	return nil
}

func (h *Hub) attach(p *Player, s *session.Session, team netconfig.Team) error {
	if err := s.AddPlayer(p.ID, p.Name, team, p.Bot); err != nil {
		return err
	}
	p.Session = s
	if p.Settings.PointerSensitivity != nil || p.Settings.PointerRange != nil {
		if err := s.UpdateSettings(p.ID, p.Settings); err != nil {
			h.log.Warn().Err(err).Str("player", p.ID).Msg("Stored settings not applied")
		}
	}
	return nil
}

// detach removes p from its session. Bots left alone with no human are
// removed too, which lets the session wind down.
func (h *Hub) detach(p *Player, reason string) {
	s := p.Session
	if s == nil {
		return
	}
	p.Session = nil
	if s.Destroyed() {
		return
	}
	if err := s.RemovePlayer(p.ID, reason); err != nil {
		h.log.Warn().Err(err).Str("player", p.ID).Msg("Leaving session")
	}
	if !p.Bot {
		h.pruneBots(s)
	}
}

func (h *Hub) settings(p *Player, patch session.SettingsPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if p.Session != nil {
		if err := p.Session.UpdateSettings(p.ID, patch); err != nil {
			return err
		}
	}
	if patch.PointerSensitivity != nil {
		p.Settings.PointerSensitivity = patch.PointerSensitivity
	}
	if patch.PointerRange != nil {
		p.Settings.PointerRange = patch.PointerRange
	}
	return nil
}

func defaultName(id string) string {
	if len(id) > 4 {
		id = id[:4]
	}
	return "Player-" + id
}

// cleanName trims a display name and caps its length.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	return name
}

func isInput(cmd any) bool {
	switch cmd.(type) {
	case messages.KeyCommand, messages.MouseMoveCommand, messages.MouseButtonCommand:
		return true
	}
	return false
}

func commandName(cmd any) string {
	switch c := cmd.(type) {
	case messages.QueueCommand:
		return "queue"
	case messages.DequeueCommand:
		return "dequeue"
	case messages.CreateGameCommand:
		return "create-game"
	case messages.JoinGameCommand:
		return "join-game"
	case messages.TeamCommand:
		return "team"
	case messages.SettingsCommand:
		return "settings"
	case messages.StartCommand:
		return "start"
	case messages.EndCommand:
		return "end"
	case messages.LeaveGameCommand:
		return "leave-game"
	case messages.AddBotCommand:
		return "add-bot"
	case messages.KeyCommand:
		if c.Down {
			return "keydown"
		}
		return "keyup"
	case messages.MouseMoveCommand:
		return "mousemove"
	case messages.MouseButtonCommand:
		if c.Down {
			return "mousedown"
		}
		return "mouseup"
	}
	return "unknown"
}

func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}
