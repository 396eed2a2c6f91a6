package drafting

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/tender/internal/common"
)

// SessionStore persists drafting sessions.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	// List returns sessions most recently updated first. A limit of zero or
	// less returns every session.
	List(ctx context.Context, limit int) ([]*Session, error)
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

// Create stores a new session.
func (s *MemorySessionStore) Create(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("%w: session %s", common.ErrDuplicateEntry, session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Get returns a copy of a session.
func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session ID is required", common.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	return session.Clone(), nil
}

// Update replaces a stored session.
func (s *MemorySessionStore) Update(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// List returns copies of stored sessions, most recently updated first.
func (s *MemorySessionStore) List(ctx context.Context, limit int) ([]*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func validateSession(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session cannot be nil", common.ErrInvalidInput)
	}
	if session.ID == "" {
		return fmt.Errorf("%w: session ID is required", common.ErrInvalidInput)
	}
	return nil
}
