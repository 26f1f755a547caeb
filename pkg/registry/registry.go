// Package registry tracks live voice sessions on the server. It owns
// session lifetime: creation, lookup, turn arbitration (a new request
// on a busy session wins by interrupting the old turn), and expiry of
// idle sessions.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kisansathi/go-vani/pkg/audio"
	"github.com/kisansathi/go-vani/pkg/session"
)

// DefaultIdleTimeout is how long a session may sit idle before the
// janitor removes it.
const DefaultIdleTimeout = 5 * time.Minute

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("registry: session not found")

// Factory builds a session for a language. The registry calls it on
// Create so transports can wire per-session callbacks.
type Factory func(language string) *session.Session

// Stats is a point-in-time snapshot of registry load.
type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	ActiveTurns    int `json:"active_turns"`
	TotalCreated   int `json:"total_created"`
	TotalExpired   int `json:"total_expired"`
}

// Registry is a concurrency-safe session table with idle expiry.
type Registry struct {
	factory     Factory
	idleTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
	created  int
	expired  int

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// Option configures a Registry.
type Option func(*Registry)

// WithIdleTimeout sets how long idle sessions are retained.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a registry over a session factory and starts the idle
// janitor.
func New(factory Factory, opts ...Option) *Registry {
	r := &Registry{
		factory:     factory,
		idleTimeout: DefaultIdleTimeout,
		sessions:    make(map[string]*session.Session),
		janitorStop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "registry")

	go r.janitor()
	return r
}

// Create builds and registers a new session for the language.
func (r *Registry) Create(language string) *session.Session {
	s := r.factory(language)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.created++
	n := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session created", "session_id", s.ID, "language", language, "active", n)
	return s
}

// Session looks up a live session by ID.
func (r *Registry) Session(id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// BeginVoiceTurn starts a voice turn over the uploaded clip. A turn
// already in flight is interrupted first: the newest request wins.
func (r *Registry) BeginVoiceTurn(ctx context.Context, id string, clip *audio.Clip) (*session.Turn, error) {
	s, err := r.Session(id)
	if err != nil {
		if clip != nil {
			clip.Release()
		}
		return nil, err
	}
	s.Interrupt()
	return s.StartClip(ctx, clip)
}

// BeginTextTurn starts a text turn, interrupting any turn in flight.
func (r *Registry) BeginTextTurn(ctx context.Context, id, query string) (*session.Turn, error) {
	s, err := r.Session(id)
	if err != nil {
		return nil, err
	}
	s.Interrupt()
	return s.StartText(ctx, query)
}

// CancelTurn interrupts the session's active turn, if any. It reports
// whether a turn was actually cancelled.
func (r *Registry) CancelTurn(id string) (bool, error) {
	s, err := r.Session(id)
	if err != nil {
		return false, err
	}
	active := s.CurrentTurn() != nil
	s.Interrupt()
	return active, nil
}

// End closes and removes a session.
func (r *Registry) End(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if err := s.Close(); err != nil {
		return err
	}
	r.logger.Info("session ended", "session_id", id)
	return nil
}

// Stats returns a snapshot of registry load.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	turns := 0
	for _, s := range r.sessions {
		if s.CurrentTurn() != nil {
			turns++
		}
	}
	return Stats{
		ActiveSessions: len(r.sessions),
		ActiveTurns:    turns,
		TotalCreated:   r.created,
		TotalExpired:   r.expired,
	}
}

// Close stops the janitor and ends every session.
func (r *Registry) Close() error {
	r.janitorOnce.Do(func() { close(r.janitorStop) })

	r.mu.Lock()
	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*session.Session)
	r.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
	return nil
}

// janitor expires idle sessions on a fraction of the idle timeout.
func (r *Registry) janitor() {
	interval := r.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.janitorStop:
			return
		case <-ticker.C:
			r.expireIdle()
		}
	}
}

// expireIdle removes sessions idle past the timeout. Sessions with a
// turn in flight are never expired.
func (r *Registry) expireIdle() {
	cutoff := time.Now().Add(-r.idleTimeout)

	r.mu.Lock()
	var stale []*session.Session
	for id, s := range r.sessions {
		if s.CurrentTurn() == nil && s.LastUsed().Before(cutoff) {
			delete(r.sessions, id)
			r.expired++
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		_ = s.Close()
		r.logger.Info("session expired", "session_id", s.ID)
	}
}
