// Package core connects the hub to the network. Transport adapts the necs
// websocket router to session.Channel and forwards every inbound command to
// the simulation loop; the admin handlers expose read-only server state.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/automoto/carball-mp/server/game"
	"github.com/automoto/carball-mp/server/simclock"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/google/uuid"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
)

// outboxSize bounds the messages queued for one client. A client that falls
// this far behind starts losing messages.
const outboxSize = 512

// conn is one connected client. Writes happen on its own goroutine so a slow
// socket never stalls the simulation loop.
type conn struct {
	id     string // player id, guarded by Transport.mu
	client *router.NetworkClient
	out    chan any
	done   chan struct{}
}

// Transport implements session.Channel over necs. Channel methods are called
// from the loop goroutine only; router callbacks arrive on connection
// goroutines and are posted to the loop.
type Transport struct {
	loop *simclock.Loop
	hub  *game.Hub
	log  zerolog.Logger

	mu       sync.RWMutex
	byPlayer map[string]*conn
	byClient map[*router.NetworkClient]*conn

	members map[string]map[string]bool // session id -> player ids, loop only

	server *transports.WsServerTransport
}

func NewTransport(loop *simclock.Loop, logger zerolog.Logger) *Transport {
	return &Transport{
		loop:     loop,
		log:      logger.With().Str("component", "transport").Logger(),
		byPlayer: make(map[string]*conn),
		byClient: make(map[*router.NetworkClient]*conn),
		members:  make(map[string]map[string]bool),
	}
}

// Bind attaches the hub. The transport and hub reference each other, so the
// hub is created after the transport and bound before Start.
func (t *Transport) Bind(hub *game.Hub) {
	t.hub = hub
}

// Start registers the router callbacks and serves websocket clients on port.
// It blocks until the listener fails.
func (t *Transport) Start(port uint) error {
	t.routes()
	t.server = transports.NewWsServerTransport(port, "", nil)
	t.log.Info().Uint("port", port).Msg("Listening for clients")
	return t.server.Start()
}

func (t *Transport) routes() {
	router.OnConnect(t.onConnect)
	router.OnDisconnect(t.onDisconnect)
	router.OnError(func(client *router.NetworkClient, err error) {
		t.log.Warn().Err(err).Str("client", client.Id()).Msg("Client error")
	})

	router.On(func(client *router.NetworkClient, msg messages.Hello) {
		t.post(client, func(id string) {
			if _, err := t.hub.Hello(id, msg); err != nil {
				t.log.Warn().Err(err).Str("player", id).Msg("Hello rejected")
			}
		})
	})

	on[messages.QueueCommand](t)
	on[messages.DequeueCommand](t)
	on[messages.CreateGameCommand](t)
	on[messages.JoinGameCommand](t)
	on[messages.TeamCommand](t)
	on[messages.SettingsCommand](t)
	on[messages.StartCommand](t)
	on[messages.EndCommand](t)
	on[messages.LeaveGameCommand](t)
	on[messages.AddBotCommand](t)
	on[messages.KeyCommand](t)
	on[messages.MouseMoveCommand](t)
	on[messages.MouseButtonCommand](t)
}

// on routes one command type to Hub.Handle.
func on[T any](t *Transport) {
	router.On(func(client *router.NetworkClient, cmd T) {
		t.post(client, func(id string) {
			_ = t.hub.Handle(id, cmd)
		})
	})
}

// post runs fn on the loop with the client's current player id. The id is
// resolved on the loop because Hello may rebind it.
func (t *Transport) post(client *router.NetworkClient, fn func(id string)) {
	ok := t.loop.Post(func() {
		t.mu.RLock()
		c, found := t.byClient[client]
		var id string
		if found {
			id = c.id
		}
		t.mu.RUnlock()
		if found {
			fn(id)
		}
	})
	if !ok {
		t.log.Debug().Str("client", client.Id()).Msg("Loop stopped, command dropped")
	}
}

func (t *Transport) onConnect(client *router.NetworkClient) {
	c := &conn{
		id:     uuid.NewString(),
		client: client,
		out:    make(chan any, outboxSize),
		done:   make(chan struct{}),
	}
	t.mu.Lock()
	t.byPlayer[c.id] = c
	t.byClient[client] = c
	t.mu.Unlock()

	go t.writeLoop(c)
	id := c.id
	t.loop.Post(func() { t.hub.Connect(id) })
	t.log.Debug().Str("client", client.Id()).Str("player", id).Msg("Client connected")
}

func (t *Transport) onDisconnect(client *router.NetworkClient, err error) {
	t.mu.Lock()
	c, ok := t.byClient[client]
	if ok {
		delete(t.byClient, client)
		delete(t.byPlayer, c.id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	close(c.done)

	id := c.id
	t.loop.Post(func() { t.hub.Disconnect(id) })
	t.log.Info().Err(err).Str("player", id).Msg("Client disconnected")
}

// Rebind moves a connection to a resumed player id. The hub calls it from the
// loop before welcoming the player under the new id.
func (t *Transport) Rebind(oldID, newID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byPlayer[oldID]
	if !ok {
		return
	}
	delete(t.byPlayer, oldID)
	c.id = newID
	t.byPlayer[newID] = c
}

func (t *Transport) writeLoop(c *conn) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			if err := c.client.SendMessage(msg); err != nil {
				t.log.Warn().Err(err).Str("client", c.client.Id()).Msg("Send failed")
			}
		}
	}
}

// Join subscribes a player to a session's broadcasts.
func (t *Transport) Join(sessionID, playerID string) {
	if t.members[sessionID] == nil {
		t.members[sessionID] = make(map[string]bool)
	}
	t.members[sessionID][playerID] = true
}

func (t *Transport) Leave(sessionID, playerID string) {
	delete(t.members[sessionID], playerID)
	if len(t.members[sessionID]) == 0 {
		delete(t.members, sessionID)
	}
}

func (t *Transport) Broadcast(sessionID string, msg any) {
	for id := range t.members[sessionID] {
		t.SendTo(id, msg)
	}
}

// SendTo queues msg for one player. Unknown ids, such as in-process bots,
// are ignored.
func (t *Transport) SendTo(playerID string, msg any) {
	t.mu.RLock()
	c, ok := t.byPlayer[playerID]
	t.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.out <- msg:
	default:
		t.log.Warn().Str("player", playerID).Msg("Outbox full, message dropped")
	}
}

// Clients counts connected clients.
func (t *Transport) Clients() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byClient)
}

// Drain waits until every outbox is empty or ctx expires. Used on shutdown
// so final results reach clients.
func (t *Transport) Drain(ctx context.Context) {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		t.mu.RLock()
		pending := 0
		for _, c := range t.byClient {
			pending += len(c.out)
		}
		t.mu.RUnlock()
		if pending == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
