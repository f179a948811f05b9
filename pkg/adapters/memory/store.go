package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/actscript/pkg/domain"
)

// Store is a process-local session store. Snapshots are copied on the way in
// and on the way out, so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.State
}

func NewStore() *Store {
	return &Store{sessions: map[string]*domain.State{}}
}

func (s *Store) Save(_ context.Context, sessionID string, state *domain.State) error {
	if sessionID == "" {
		return domain.ErrInvalidSessionID
	}
	snap := state.Snapshot()
	s.mu.Lock()
	s.sessions[sessionID] = snap
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(_ context.Context, sessionID string) (*domain.State, error) {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	// stored snapshots are never mutated, so copying outside the lock is safe
	return state.Snapshot(), nil
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// List returns the session IDs in lexical order.
func (s *Store) List(context.Context) ([]string, error) {
	s.mu.RLock()
	ids := slices.AppendSeq(make([]string, 0, len(s.sessions)), maps.Keys(s.sessions))
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

// Len reports how many sessions are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
