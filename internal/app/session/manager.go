package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/domain"
)

// Manager holds the single logged-in identity of the client and keeps it in sync with the durable store.
// All returned sessions are copies, callers cannot modify the managed session.
type Manager struct {
	key   string
	store KeyValueStore
	bus   EventBus
	now   func() time.Time

	mux     sync.RWMutex
	current *domain.Session
}

func NewManager(cfg *config.Config, store KeyValueStore, bus EventBus) *Manager {
	return &Manager{
		key:   cfg.Session.Key,
		store: store,
		bus:   bus,
		now:   time.Now,
	}
}

// Restore loads the persisted session. A missing value yields no session. A value that cannot be decoded, or
// that decodes to a session without username (like the JSON literal null), is removed from the store and the
// client continues unauthenticated.
func (m *Manager) Restore(ctx context.Context) *domain.Session {
	m.mux.Lock()
	defer m.mux.Unlock()

	m.current = nil

	data, err := m.store.Load(ctx, m.key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		slog.Warn("failed to load persisted session", "key", m.key, "error", err)
		return nil
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.discard(ctx, err)
		return nil
	}
	if s.Username == "" {
		m.discard(ctx, errors.New("session without username"))
		return nil
	}

	m.current = &s
	slog.Debug("restored session", "username", s.Username, "role", s.Role)

	return copySession(m.current)
}

func (m *Manager) discard(ctx context.Context, reason error) {
	slog.Debug("discarding corrupt persisted session", "key", m.key, "error", reason)
	if err := m.store.Remove(ctx, m.key); err != nil {
		slog.Warn("failed to remove corrupt session", "key", m.key, "error", err)
	}
}

// Login replaces the current session with a new one for the given identity. The session is always kept in
// memory, a persistence failure is returned but does not undo the login.
func (m *Manager) Login(ctx context.Context, identity domain.Identity) (*domain.Session, error) {
	s := domain.NewSession(identity, m.now())

	m.mux.Lock()
	m.current = s
	m.mux.Unlock()

	m.bus.Publish(app.TopicSessionLogin, *s)

	data, err := json.Marshal(s)
	if err != nil {
		return copySession(s), fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.store.Store(ctx, m.key, data); err != nil {
		return copySession(s), fmt.Errorf("failed to persist session: %w", err)
	}

	return copySession(s), nil
}

// Logout clears the in-memory and the persisted session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mux.Lock()
	old := m.current
	m.current = nil
	m.mux.Unlock()

	if old != nil {
		m.bus.Publish(app.TopicSessionLogout, *old)
	}

	if err := m.store.Remove(ctx, m.key); err != nil {
		return fmt.Errorf("failed to remove persisted session: %w", err)
	}

	return nil
}

// Current returns the active session or nil if nobody is logged in.
func (m *Manager) Current() *domain.Session {
	m.mux.RLock()
	defer m.mux.RUnlock()

	return copySession(m.current)
}

func (m *Manager) IsAdmin() bool {
	m.mux.RLock()
	defer m.mux.RUnlock()

	return m.current.IsAdmin()
}

func copySession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
