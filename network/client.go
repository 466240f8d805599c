package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
)

var ErrNotConnected = errors.New("not connected")

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateWelcomed
	StateInSession
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateWelcomed:
		return "welcomed"
	case StateInSession:
		return "in-session"
	case StateError:
		return "error"
	}
	return "disconnected"
}

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state      ClientState
	lastError  error
	playerID   string
	serverName string
	tickRate   int
	welcomes   int
	session    messages.SessionJoined
	match      netconfig.SessionState
	conn       *websocket.Conn

	buffer *StateBuffer
	log    zerolog.Logger

	ackCh   chan messages.Ack
	eventCh chan any // countdown, clock, score, match end, session left
}

func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		state:   StateDisconnected,
		buffer:  NewStateBuffer(),
		log:     logger.With().Str("component", "client").Logger(),
		ackCh:   make(chan messages.Ack, 16),
		eventCh: make(chan any, 64),
	}
}

// Connect dials the server in a background goroutine and sends hello once
// the socket is up.
func (c *Client) Connect(address string, hello messages.Hello) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.welcomes = 0
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		c.log.Info().Str("address", address).Msg("Connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		if err := c.SendMessage(hello); err != nil {
			c.setError(fmt.Errorf("send hello: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.Welcome) {
		c.log.Info().Str("player", msg.PlayerID).Str("server", msg.ServerName).Int("tickRate", msg.TickRate).Msg("Welcome")
		c.mu.Lock()
		c.playerID = msg.PlayerID
		c.serverName = msg.ServerName
		c.tickRate = msg.TickRate
		c.welcomes++
		// The server welcomes on connect and again in reply to Hello. Only
		// the second carries the id this client will keep.
		if c.welcomes >= 2 && c.state < StateWelcomed {
			c.state = StateWelcomed
		}
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.Ack) {
		if !msg.OK {
			c.log.Warn().Str("command", msg.Command).Str("reason", msg.Reason).Msg("Command rejected")
		}
		push(c.ackCh, msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.SessionJoined) {
		c.log.Info().Str("session", msg.SessionID).Str("mode", msg.Mode).Msg("Joined session")
		c.mu.Lock()
		c.session = msg
		c.state = StateInSession
		c.buffer = NewStateBuffer()
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.SessionLeft) {
		c.log.Info().Str("session", msg.SessionID).Str("reason", msg.Reason).Msg("Left session")
		c.mu.Lock()
		if c.session.SessionID == msg.SessionID {
			c.session = messages.SessionJoined{}
			c.state = StateWelcomed
		}
		c.mu.Unlock()
		push(c.eventCh, any(msg))
	})

	router.On(func(_ *router.NetworkClient, msg messages.ActorAdded) { c.Buffer().Add(msg) })
	router.On(func(_ *router.NetworkClient, msg messages.ActorRemoved) { c.Buffer().Remove(msg) })
	router.On(func(_ *router.NetworkClient, msg messages.FlagUpdate) { c.Buffer().SetFlags(msg) })
	router.On(func(_ *router.NetworkClient, msg messages.StatePatch) { c.Buffer().Apply(msg, time.Now()) })

	router.On(func(_ *router.NetworkClient, msg messages.StateChanged) {
		c.mu.Lock()
		c.match = msg.State
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, evt messages.CountdownEvent) { push(c.eventCh, any(evt)) })
	router.On(func(_ *router.NetworkClient, evt messages.ClockEvent) { push(c.eventCh, any(evt)) })
	router.On(func(_ *router.NetworkClient, evt messages.ScoreEvent) { push(c.eventCh, any(evt)) })
	router.On(func(_ *router.NetworkClient, evt messages.MatchEnded) { push(c.eventCh, any(evt)) })

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.log.Info().Err(err).Msg("Disconnected")
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.log.Warn().Err(err).Msg("Client error")
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// PlayerID is the id assigned by the server, empty before the first Welcome.
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

// Session is the current session, zero when not attached.
func (c *Client) Session() messages.SessionJoined {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// MatchState is the last session state the server announced.
func (c *Client) MatchState() netconfig.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.match
}

// Buffer is the state buffer of the current session. It is replaced on
// every SessionJoined.
func (c *Client) Buffer() *StateBuffer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buffer
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

// Key and MouseMove let the client drive a bot.Driver directly.
func (c *Client) Key(key string, down bool) error {
	return c.SendMessage(messages.KeyCommand{Key: key, Down: down})
}

func (c *Client) MouseMove(dx, dy float64) error {
	return c.SendMessage(messages.MouseMoveCommand{DX: dx, DY: dy})
}

func (c *Client) setError(err error) {
	c.log.Error().Err(err).Msg("Client failed")
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

// DrainAcks returns all pending acks, non-blocking.
func (c *Client) DrainAcks() []messages.Ack {
	return drainChan(c.ackCh)
}

// DrainEvents returns all pending match events, non-blocking.
func (c *Client) DrainEvents() []any {
	return drainChan(c.eventCh)
}

// push drops the oldest entry when ch is full.
func push[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
