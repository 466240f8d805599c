// Package storage persists player ratings and finished matches. The memory
// store keeps everything in process; GormStore writes to sqlite or postgres.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/automoto/carball-mp/shared/messages"
	"gorm.io/datatypes"
)

// Store is the persistence surface the server uses.
type Store interface {
	// Rating returns a player's MMR, or the default rating for unknown ids.
	Rating(ctx context.Context, playerID string) (float64, error)
	// ApplyRatings adds each delta to the player's current rating.
	ApplyRatings(ctx context.Context, deltas map[string]float64) error
	SaveMatch(ctx context.Context, m MatchRecord) error
	// RecentMatches returns up to limit matches, newest first.
	RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error)
	Close() error
}

// PlayerRating is one player's stored MMR.
type PlayerRating struct {
	PlayerID  string `gorm:"primaryKey"`
	Rating    float64
	Games     int
	UpdatedAt time.Time
}

// MatchRecord is a finished match. Stats holds the per-player lines as JSON.
type MatchRecord struct {
	ID        string `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	Mode      string
	Kind      string
	Blue      int
	Red       int
	Winner    string
	Reason    string
	PlayedMs  int64
	Stats     datatypes.JSON
	CreatedAt time.Time `gorm:"index"`
}

// EncodeStats converts stat lines for MatchRecord.Stats.
func EncodeStats(stats []messages.PlayerStats) (datatypes.JSON, error) {
	if stats == nil {
		stats = []messages.PlayerStats{}
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("encoding match stats: %w", err)
	}
	return datatypes.JSON(b), nil
}

// DecodeStats reads the stat lines back.
func (m MatchRecord) DecodeStats() ([]messages.PlayerStats, error) {
	var stats []messages.PlayerStats
	if len(m.Stats) == 0 {
		return stats, nil
	}
	if err := json.Unmarshal(m.Stats, &stats); err != nil {
		return nil, fmt.Errorf("decoding match stats: %w", err)
	}
	return stats, nil
}
