package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"strings"
	"time"

	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/server/simclock"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength = 6
)

// RegistryOptions are shared by every session a registry creates.
type RegistryOptions struct {
	Arena        *arena.Arena
	Channel      Channel
	Scheduler    simclock.Scheduler
	PollInterval time.Duration
	Logger       zerolog.Logger
	// Rand seeds each session's spawn randomness. Nil uses the clock.
	Rand *mrand.Rand
}

// Registry tracks live sessions by id and private rooms by join code. Empty
// sessions remove themselves. It runs on the same scheduler as its sessions.
type Registry struct {
	opts     RegistryOptions
	sessions map[string]*Session
	byCode   map[string]*Session
	created  []string // creation order
	log      zerolog.Logger

	active metric.Int64UpDownCounter
}

func NewRegistry(opts RegistryOptions) (*Registry, error) {
	active, err := meter().Int64UpDownCounter("sessions.active",
		metric.WithDescription("Live sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions gauge: %w", err)
	}
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
		byCode:   make(map[string]*Session),
		log:      opts.Logger.With().Str("component", "sessions").Logger(),
		active:   active,
	}, nil
}

// Create starts a new session. Private rooms get a unique join code. The
// registry chains its own removal onto hooks.OnEmpty.
func (r *Registry) Create(kind netconfig.SessionKind, mode config.GameMode, hooks Hooks) (*Session, error) {
	id := uuid.NewString()
	var code string
	if kind == netconfig.KindPrivate {
		var err error
		if code, err = r.uniqueCode(); err != nil {
			return nil, err
		}
	}

	onEmpty := hooks.OnEmpty
	hooks.OnEmpty = func(s *Session) {
		r.Remove(s.ID)
		if onEmpty != nil {
			onEmpty(s)
		}
	}

	var rng *mrand.Rand
	if r.opts.Rand != nil {
		rng = mrand.New(mrand.NewSource(r.opts.Rand.Int63()))
	}
	s, err := New(Config{
		ID:           id,
		Code:         code,
		Kind:         kind,
		Mode:         mode,
		Arena:        r.opts.Arena,
		Channel:      r.opts.Channel,
		Scheduler:    r.opts.Scheduler,
		PollInterval: r.opts.PollInterval,
		Rand:         rng,
		Logger:       r.opts.Logger,
		Hooks:        hooks,
	})
	if err != nil {
		return nil, err
	}

	r.sessions[id] = s
	if code != "" {
		r.byCode[code] = s
	}
	r.created = append(r.created, id)
	r.active.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind.String())))
	r.log.Debug().Str("session", id).Str("code", code).Msg("Session registered")
	return s, nil
}

func (r *Registry) uniqueCode() (string, error) {
	for range 100 {
		code, err := NewCode()
		if err != nil {
			return "", err
		}
		if _, taken := r.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free room code")
}

// NewCode returns a random six character room code. The alphabet leaves out
// characters that are easy to confuse (0/O, 1/I).
func NewCode() (string, error) {
	b := make([]byte, codeLength)
	n := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("generating room code: %w", err)
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b), nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// ByCode looks up a private room. Codes are matched case-insensitively.
func (r *Registry) ByCode(code string) (*Session, bool) {
	s, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return s, ok
}

// Remove destroys a session and forgets it. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	s.Destroy()
	delete(r.sessions, id)
	if s.Code != "" {
		delete(r.byCode, s.Code)
	}
	for i, other := range r.created {
		if other == id {
			r.created = append(r.created[:i], r.created[i+1:]...)
			break
		}
	}
	r.active.Add(context.Background(), -1, metric.WithAttributes(attribute.String("kind", s.Kind.String())))
	r.log.Debug().Str("session", id).Msg("Session removed")
}

// List returns live sessions in creation order.
func (r *Registry) List() []*Session {
	out := make([]*Session, 0, len(r.created))
	for _, id := range r.created {
		out = append(out, r.sessions[id])
	}
	return out
}

// Infos summarises every live session in creation order.
func (r *Registry) Infos() []Info {
	list := r.List()
	out := make([]Info, 0, len(list))
	for _, s := range list {
		out = append(out, s.Info())
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.sessions)
}

// Close ends every running match with ReasonShutdown, then destroys every
// session.
func (r *Registry) Close() {
	for _, s := range r.List() {
		s.Abort(ReasonShutdown)
		r.Remove(s.ID)
	}
}
