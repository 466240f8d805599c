// Package matchmaking groups waiting players into balanced matches. Groups of
// the same mode whose average ratings are close merge eagerly after every
// enqueue and dequeue; a group with no open slot left is a completed match.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/automoto/carball-mp/config"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownMode   = errors.New("unknown game mode")
	ErrAlreadyQueued = errors.New("player already queued")
	ErrNotQueued     = errors.New("player not queued")
)

// Group is a set of players waiting together. PlayersNeeded plus the number
// of members is always the full roster size of the mode.
type Group struct {
	Creator       string
	Mode          config.GameMode
	Members       []string
	PlayersNeeded int
	AvgMMR        float64
}

// Match is a completed group ready to become a session.
type Match struct {
	Mode    config.GameMode
	Members []string
	AvgMMR  float64
}

// Options configures a Queue.
type Options struct {
	Threshold float64 // defaults to config.Matchmaking.MMRThreshold
	Logger    zerolog.Logger
}

// Queue owns every waiting group. It is not safe for concurrent use; the
// caller serialises access (the server runs it on the simulation loop).
type Queue struct {
	groups    []*Group // insertion order
	byPlayer  map[string]*Group
	ratings   map[string]float64
	threshold float64
	log       zerolog.Logger

	// OTEL metrics
	groupGauge metric.Int64ObservableGauge
	matches    metric.Int64Counter
	enqueued   metric.Int64Counter

	// Snapshot of group counts for the gauge callback
	mu     sync.Mutex
	counts map[config.GameMode]int
}

// NewQueue creates an empty queue.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewQueue(opts Options) (*Queue, error) {
	q := &Queue{
		byPlayer:  make(map[string]*Group),
		ratings:   make(map[string]float64),
		threshold: opts.Threshold,
		log:       opts.Logger.With().Str("component", "matchmaking").Logger(),
		counts:    make(map[config.GameMode]int),
	}
	if q.threshold <= 0 {
		q.threshold = config.Matchmaking.MMRThreshold
	}

	m := meter()
	var err error

	q.groupGauge, err = m.Int64ObservableGauge(
		"matchmaking.groups",
		metric.WithDescription("Groups currently waiting in the queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating groups gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			q.mu.Lock()
			defer q.mu.Unlock()
			for mode, n := range q.counts {
				o.ObserveInt64(q.groupGauge, int64(n),
					metric.WithAttributes(attribute.String("mode", mode.String())))
			}
			return nil
		},
		q.groupGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering groups callback: %w", err)
	}

	q.matches, err = m.Int64Counter(
		"matchmaking.matches",
		metric.WithDescription("Total matches formed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating matches counter: %w", err)
	}

	q.enqueued, err = m.Int64Counter(
		"matchmaking.enqueued",
		metric.WithDescription("Total players queued"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating enqueued counter: %w", err)
	}

	return q, nil
}

// Enqueue adds a player as a singleton group seeded with their rating and
// runs a merge pass. It returns the matches the pass completed.
func (q *Queue) Enqueue(playerID string, mode config.GameMode, mmr float64) ([]Match, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if _, ok := q.byPlayer[playerID]; ok {
		return nil, ErrAlreadyQueued
	}

	q.ratings[playerID] = mmr
	q.addSingleton(playerID, mode)
	q.enqueued.Add(context.Background(), 1, metric.WithAttributes(attribute.String("mode", mode.String())))
	q.log.Debug().Str("player", playerID).Str("mode", mode.String()).Float64("mmr", mmr).Msg("Player queued")

	return q.matchmake(), nil
}

// Dequeue removes a player. If they created their group, every other member
// is re-homed into a fresh singleton group; otherwise they are spliced out of
// the group they joined. A merge pass follows.
func (q *Queue) Dequeue(playerID string) ([]Match, error) {
	g, ok := q.byPlayer[playerID]
	if !ok {
		return nil, ErrNotQueued
	}

	if g.Creator == playerID {
		q.removeGroup(g)
		for _, id := range g.Members {
			if id == playerID {
				continue
			}
			q.addSingleton(id, g.Mode)
		}
	} else {
		g.Members = without(g.Members, playerID)
		g.PlayersNeeded++
		g.AvgMMR = q.average(g.Members)
	}
	delete(q.byPlayer, playerID)
	delete(q.ratings, playerID)
	q.log.Debug().Str("player", playerID).Msg("Player dequeued")

	return q.matchmake(), nil
}

// Contains reports whether a player is waiting.
func (q *Queue) Contains(playerID string) bool {
	_, ok := q.byPlayer[playerID]
	return ok
}

// GroupOf returns a copy of the group holding playerID.
func (q *Queue) GroupOf(playerID string) (Group, bool) {
	g, ok := q.byPlayer[playerID]
	if !ok {
		return Group{}, false
	}
	return g.clone(), true
}

// Groups returns copies of every waiting group in insertion order.
func (q *Queue) Groups() []Group {
	out := make([]Group, 0, len(q.groups))
	for _, g := range q.groups {
		out = append(out, g.clone())
	}
	return out
}

func (q *Queue) addSingleton(playerID string, mode config.GameMode) {
	g := &Group{
		Creator:       playerID,
		Mode:          mode,
		Members:       []string{playerID},
		PlayersNeeded: mode.Players() - 1,
		AvgMMR:        q.ratings[playerID],
	}
	q.groups = append(q.groups, g)
	q.byPlayer[playerID] = g
}

func (q *Queue) removeGroup(g *Group) {
	for i, other := range q.groups {
		if other == g {
			q.groups = append(q.groups[:i], q.groups[i+1:]...)
			return
		}
	}
}

// matchmake merges compatible pairs until no pair merges. Pairs are visited
// in insertion order and the earlier group receives the later one.
func (q *Queue) matchmake() []Match {
	var done []Match
	for {
		recv, absorbed := q.findPair()
		if recv == nil {
			break
		}
		q.merge(recv, absorbed)
		if recv.PlayersNeeded == 0 {
			done = append(done, q.complete(recv))
		}
	}
	q.publish()
	return done
}

func (q *Queue) findPair() (*Group, *Group) {
	for i, a := range q.groups {
		for _, b := range q.groups[i+1:] {
			if q.compatible(a, b) {
				return a, b
			}
		}
	}
	return nil, nil
}

func (q *Queue) compatible(a, b *Group) bool {
	if a.Mode != b.Mode {
		return false
	}
	if math.Abs(a.AvgMMR-b.AvgMMR) >= q.threshold {
		return false
	}
	return a.PlayersNeeded >= len(b.Members)
}

func (q *Queue) merge(recv, absorbed *Group) {
	na, nb := float64(len(recv.Members)), float64(len(absorbed.Members))
	recv.AvgMMR = (recv.AvgMMR*na + absorbed.AvgMMR*nb) / (na + nb)
	recv.Members = append(recv.Members, absorbed.Members...)
	recv.PlayersNeeded -= len(absorbed.Members)
	for _, id := range absorbed.Members {
		q.byPlayer[id] = recv
	}
	q.removeGroup(absorbed)
}

func (q *Queue) complete(g *Group) Match {
	q.removeGroup(g)
	for _, id := range g.Members {
		delete(q.byPlayer, id)
		delete(q.ratings, id)
	}
	m := Match{Mode: g.Mode, Members: append([]string(nil), g.Members...), AvgMMR: g.AvgMMR}
	q.matches.Add(context.Background(), 1, metric.WithAttributes(attribute.String("mode", g.Mode.String())))
	q.log.Info().Str("mode", g.Mode.String()).Strs("players", m.Members).Float64("avgMMR", m.AvgMMR).Msg("Match formed")
	return m
}

func (q *Queue) average(ids []string) float64 {
	if len(ids) == 0 {
		return 0
	}
	var sum float64
	for _, id := range ids {
		sum += q.ratings[id]
	}
	return sum / float64(len(ids))
}

func (q *Queue) publish() {
	counts := make(map[config.GameMode]int, len(config.GameModes))
	for _, mode := range config.GameModes {
		counts[mode] = 0
	}
	for _, g := range q.groups {
		counts[g.Mode]++
	}
	q.mu.Lock()
	q.counts = counts
	q.mu.Unlock()
}

func (g *Group) clone() Group {
	c := *g
	c.Members = append([]string(nil), g.Members...)
	return c
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
