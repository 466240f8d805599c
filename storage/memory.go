package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a Store that lives and dies with the process.
type Memory struct {
	mu            sync.Mutex
	defaultRating float64
	ratings       map[string]*PlayerRating
	matches       []MatchRecord
}

func NewMemory(defaultRating float64) *Memory {
	return &Memory{
		defaultRating: defaultRating,
		ratings:       make(map[string]*PlayerRating),
	}
}

func (m *Memory) Rating(_ context.Context, playerID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ratings[playerID]; ok {
		return r.Rating, nil
	}
	return m.defaultRating, nil
}

func (m *Memory) ApplyRatings(_ context.Context, deltas map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, d := range deltas {
		r, ok := m.ratings[id]
		if !ok {
			r = &PlayerRating{PlayerID: id, Rating: m.defaultRating}
			m.ratings[id] = r
		}
		r.Rating += d
		r.Games++
		r.UpdatedAt = now
	}
	return nil
}

func (m *Memory) SaveMatch(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.matches = append(m.matches, rec)
	return nil
}

func (m *Memory) RecentMatches(_ context.Context, limit int) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MatchRecord, 0, len(m.matches))
	for i := len(m.matches) - 1; i >= 0; i-- {
		out = append(out, m.matches[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
