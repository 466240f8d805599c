package core

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/automoto/carball-mp/server/game"
	"github.com/automoto/carball-mp/server/matchmaking"
	"github.com/automoto/carball-mp/server/session"
	"github.com/automoto/carball-mp/server/simclock"
	"github.com/rs/zerolog"
)

const readTimeout = 2 * time.Second

type healthResponse struct {
	Status   string `json:"status"`
	Clients  int    `json:"clients"`
	Sessions int    `json:"sessions"`
}

type queueGroup struct {
	Creator       string   `json:"creator"`
	Members       []string `json:"members"`
	PlayersNeeded int      `json:"playersNeeded"`
	AvgMMR        float64  `json:"avgMmr"`
}

// Admin serves read-only server state. Every read runs on the loop.
type Admin struct {
	loop      *simclock.Loop
	hub       *game.Hub
	transport *Transport
	log       zerolog.Logger
}

func NewAdmin(loop *simclock.Loop, hub *game.Hub, transport *Transport, logger zerolog.Logger) *Admin {
	return &Admin{
		loop:      loop,
		hub:       hub,
		transport: transport,
		log:       logger.With().Str("component", "admin").Logger(),
	}
}

// Handler returns the admin routes.
func (a *Admin) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.Health())
	mux.HandleFunc("GET /sessions", a.Sessions())
	mux.HandleFunc("GET /queue", a.Queue())
	return mux
}

// Health reports liveness. A stopped loop answers 503.
func (a *Admin) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessions int
		if err := a.read(r.Context(), func() { sessions = len(a.hub.Sessions()) }); err != nil {
			a.fail(w, err)
			return
		}
		a.write(w, healthResponse{Status: "ok", Clients: a.transport.Clients(), Sessions: sessions})
	}
}

func (a *Admin) Sessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var infos []session.Info
		if err := a.read(r.Context(), func() { infos = a.hub.Sessions() }); err != nil {
			a.fail(w, err)
			return
		}
		a.write(w, infos)
	}
}

// Queue lists waiting groups by mode.
func (a *Admin) Queue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var groups []matchmaking.Group
		if err := a.read(r.Context(), func() { groups = a.hub.Groups() }); err != nil {
			a.fail(w, err)
			return
		}
		byMode := make(map[string][]queueGroup)
		for _, g := range groups {
			byMode[g.Mode.String()] = append(byMode[g.Mode.String()], queueGroup{
				Creator:       g.Creator,
				Members:       g.Members,
				PlayersNeeded: g.PlayersNeeded,
				AvgMMR:        g.AvgMMR,
			})
		}
		a.write(w, byMode)
	}
}

func (a *Admin) read(ctx context.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return a.loop.Do(ctx, fn)
}

func (a *Admin) write(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error().Err(err).Msg("Encoding response")
	}
}

func (a *Admin) fail(w http.ResponseWriter, err error) {
	a.log.Warn().Err(err).Msg("Admin read failed")
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":"server busy"}`, http.StatusServiceUnavailable)
}
