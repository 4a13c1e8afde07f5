// internal/game/game_store.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSweepInterval = 60 * time.Second
	DefaultIdleTimeout   = 15 * time.Minute
)

// RemoveReason says why a session left the store.
type RemoveReason string

const (
	ReasonEnded RemoveReason = "ended"
	ReasonIdle  RemoveReason = "idle"
)

// CleanupFunc runs after a session is taken out of the store. It must not lock the session.
type CleanupFunc func(s *Session, reason RemoveReason)

// GameStore owns every live session.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*Session

	IdleTimeout time.Duration
	OnRemove    CleanupFunc

	sessionOpts []Option
	now         func() time.Time
	log         *logrus.Entry
}

// StoreOption configures a GameStore.
type StoreOption func(*GameStore)

// WithIdleTimeout sets how long a session may sit untouched before a sweep removes it.
func WithIdleTimeout(d time.Duration) StoreOption {
	return func(gs *GameStore) { gs.IdleTimeout = d }
}

// WithCleanup registers the hook called on every removal.
func WithCleanup(fn CleanupFunc) StoreOption {
	return func(gs *GameStore) { gs.OnRemove = fn }
}

// WithSessionOptions applies opts to every session the store creates.
func WithSessionOptions(opts ...Option) StoreOption {
	return func(gs *GameStore) { gs.sessionOpts = append(gs.sessionOpts, opts...) }
}

// WithStoreClock overrides the clock used by sweeps.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(gs *GameStore) { gs.now = now }
}

// WithStoreLogger sets the store's logger.
func WithStoreLogger(l *logrus.Logger) StoreOption {
	return func(gs *GameStore) { gs.log = logrus.NewEntry(l) }
}

func NewGameStore(opts ...StoreOption) *GameStore {
	gs := &GameStore{
		games:       make(map[uuid.UUID]*Session),
		IdleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		log:         logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// Create builds a session with a fresh id and stores it.
func (gs *GameStore) Create(opts ...Option) *Session {
	all := append(append([]Option{}, gs.sessionOpts...), opts...)
	s := NewSession(all...)

	gs.mu.Lock()
	defer gs.mu.Unlock()
	for {
		if _, taken := gs.games[s.ID]; !taken {
			break
		}
		s.ID = uuid.New()
	}
	gs.games[s.ID] = s
	gs.log.WithField("game_id", s.ID).Info("session created")
	return s
}

// Get looks a session up by id.
func (gs *GameStore) Get(id uuid.UUID) (*Session, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	s, ok := gs.games[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove deletes a finished or abandoned session and runs the cleanup hook.
func (gs *GameStore) Remove(id uuid.UUID) error {
	return gs.remove(id, ReasonEnded)
}

func (gs *GameStore) remove(id uuid.UUID, reason RemoveReason) error {
	gs.mu.Lock()
	s, ok := gs.games[id]
	if ok {
		delete(gs.games, id)
	}
	gs.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	gs.log.WithFields(logrus.Fields{"game_id": id, "reason": reason}).Info("session removed")
	if gs.OnRemove != nil {
		gs.OnRemove(s, reason)
	}
	return nil
}

// List returns a snapshot of the live sessions.
func (gs *GameStore) List() []*Session {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	out := make([]*Session, 0, len(gs.games))
	for _, s := range gs.games {
		out = append(out, s)
	}
	return out
}

// Len returns the number of live sessions.
func (gs *GameStore) Len() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.games)
}

// Sweep removes every session idle for longer than IdleTimeout as of now.
func (gs *GameStore) Sweep(now time.Time) []uuid.UUID {
	var stale []uuid.UUID
	gs.mu.Lock()
	for id, s := range gs.games {
		if now.Sub(s.LastActivity()) > gs.IdleTimeout {
			stale = append(stale, id)
		}
	}
	gs.mu.Unlock()

	removed := stale[:0]
	for _, id := range stale {
		// the session may have been removed by its own game in between
		if err := gs.remove(id, ReasonIdle); err == nil {
			removed = append(removed, id)
		}
	}
	return removed
}

// RunSweeper sweeps on every tick until ctx is done.
func (gs *GameStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := gs.Sweep(gs.now()); len(ids) > 0 {
				gs.log.WithField("count", len(ids)).Info("idle sessions reclaimed")
			}
		}
	}
}
