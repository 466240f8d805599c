package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/automoto/carball-mp/config"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore is a Store backed by a SQL database.
type GormStore struct {
	db            *gorm.DB
	defaultRating float64
	log           zerolog.Logger
}

// Open returns the Store selected by settings: memory, sqlite or postgres.
func Open(s config.Settings, log zerolog.Logger) (Store, error) {
	def := config.Matchmaking.DefaultRating
	switch s.Storage.Driver {
	case "", "memory":
		log.Info().Msg("Using in-memory storage")
		return NewMemory(def), nil
	case "sqlite":
		db, err := OpenSqlite(s.Storage.SqlitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", s.Storage.SqlitePath).Msg("Using SQLite storage")
		return NewGormStore(db, def, log)
	case "postgres":
		db, err := OpenPostgres(s.DB)
		if err != nil {
			return nil, err
		}
		log.Info().Str("host", s.DB.Host).Str("database", s.DB.Database).Msg("Connected to Postgres")
		return NewGormStore(db, def, log)
	}
	return nil, fmt.Errorf("unknown storage driver %q", s.Storage.Driver)
}

// OpenSqlite opens (or creates) a SQLite database file.
func OpenSqlite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// OpenPostgres connects to the configured Postgres database.
func OpenPostgres(s config.DBSettings) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		s.Host, s.Port, s.Username, s.Password, s.Database)
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}

// NewGormStore migrates the schema and wraps db.
func NewGormStore(db *gorm.DB, defaultRating float64, log zerolog.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&PlayerRating{}, &MatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &GormStore{
		db:            db,
		defaultRating: defaultRating,
		log:           log.With().Str("component", "storage").Logger(),
	}, nil
}

func (g *GormStore) Rating(ctx context.Context, playerID string) (float64, error) {
	var r PlayerRating
	err := g.db.WithContext(ctx).Where("player_id = ?", playerID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return g.defaultRating, nil
	}
	if err != nil {
		return g.defaultRating, fmt.Errorf("reading rating for %s: %w", playerID, err)
	}
	return r.Rating, nil
}

// ApplyRatings updates every rating in one transaction.
func (g *GormStore) ApplyRatings(ctx context.Context, deltas map[string]float64) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, d := range deltas {
			r := PlayerRating{PlayerID: id, Rating: g.defaultRating}
			err := tx.Where("player_id = ?", id).First(&r).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				r = PlayerRating{PlayerID: id, Rating: g.defaultRating}
			case err != nil:
				return fmt.Errorf("reading rating for %s: %w", id, err)
			}
			r.Rating += d
			r.Games++
			err = tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&r).Error
			if err != nil {
				return fmt.Errorf("saving rating for %s: %w", id, err)
			}
		}
		return nil
	})
}

func (g *GormStore) SaveMatch(ctx context.Context, m MatchRecord) error {
	if err := g.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("saving match %s: %w", m.ID, err)
	}
	g.log.Debug().Str("match", m.ID).Msg("Match saved")
	return nil
}

func (g *GormStore) RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	var out []MatchRecord
	q := g.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	return out, nil
}

func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
