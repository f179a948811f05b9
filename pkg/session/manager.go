package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/actscript/internal/logging"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/ports"
)

// sessionLock is an in-process mutex shared by the callers working on one
// session. It is dropped from the table once nobody holds or waits for it.
type sessionLock struct {
	mu      sync.Mutex
	waiters int
}

// Manager serializes access to sessions kept in a StateStore.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*sessionLock

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// InitFunc builds the state of a session that does not exist yet.
type InitFunc func(ctx context.Context) (*domain.State, error)

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager returns a Manager over store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*sessionLock),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lock takes the in-process lock of a session and returns its release.
func (m *Manager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.waiters++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		if l.waiters--; l.waiters == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		return err
	})
	return state, err
}

// LoadOrStart tries to load a session. If not found, it builds one with init
// and persists it before returning. Concurrent callers see a single init.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID string, init InitFunc) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		state, err = init(ctx)
		if err != nil {
			return err
		}
		state.SessionID = sessionID

		if err := m.store.Save(ctx, sessionID, state); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		m.logger.Debug("session started", "session_id", sessionID)
		return nil
	})
	return state, err
}

// Update loads the session, applies fn and saves the result, all under the
// session lock. Nothing is saved when fn fails.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(ctx context.Context, state *domain.State) error) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(ctx, state); err != nil {
			return err
		}
		state.SessionID = sessionID
		return m.store.Save(ctx, sessionID, state)
	})
	return state, err
}

// Save persists the session state.
func (m *Manager) Save(ctx context.Context, sessionID string, state *domain.State) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, state)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock runs fn while holding the session lock, in process and, when a
// DistributedLocker is configured, across replicas.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if sessionID == "" {
		return domain.ErrInvalidSessionID
	}
	defer m.lock(sessionID)()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Released even when ctx was cancelled mid update.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("distributed lock release failed, it expires with its TTL",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
