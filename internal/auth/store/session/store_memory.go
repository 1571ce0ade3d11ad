package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
)

// InMemoryStore stores sessions in memory for tests and single-node runs.
// Token indexes mirror the primary map so lookup-per-request stays O(1).
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*models.Session
	byAccess  map[string]uuid.UUID
	byRefresh map[string]uuid.UUID
}

// New constructs an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[uuid.UUID]*models.Session),
		byAccess:  make(map[string]uuid.UUID),
		byRefresh: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop stale token index entries when a session is rotated in place.
	if old, ok := s.sessions[session.ID]; ok {
		delete(s.byAccess, old.AccessToken)
		delete(s.byRefresh, old.RefreshToken)
	}

	cp := *session
	s.sessions[session.ID] = &cp
	s.byAccess[cp.AccessToken] = cp.ID
	s.byRefresh[cp.RefreshToken] = cp.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[id]; ok {
		cp := *session
		return &cp, nil
	}
	return nil, fmt.Errorf("session not found: %w", store.ErrNotFound)
}

func (s *InMemoryStore) FindByAccessToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byAccess[token]; ok {
		cp := *s.sessions[id]
		return &cp, nil
	}
	return nil, fmt.Errorf("session not found: %w", store.ErrNotFound)
}

func (s *InMemoryStore) FindByRefreshToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byRefresh[token]; ok {
		cp := *s.sessions[id]
		return &cp, nil
	}
	return nil, fmt.Errorf("session not found: %w", store.ErrNotFound)
}

func (s *InMemoryStore) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsActive {
			cp := *session
			out = append(out, &cp)
		}
	}
	// Oldest first, so callers evicting over a session cap can take the head.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CountActiveByUser(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) DeactivateAllByUser(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsActive {
			session.IsActive = false
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, session := range s.sessions {
		if session.RefreshExpiresAt.Before(before) {
			delete(s.byAccess, session.AccessToken)
			delete(s.byRefresh, session.RefreshToken)
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}
