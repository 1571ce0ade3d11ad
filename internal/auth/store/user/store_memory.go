package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return store.ErrNotFound when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore stores users in memory for tests and single-node runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

// New constructs an empty in-memory user store.
func New() *InMemoryStore {
	return &InMemoryStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *InMemoryStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, fmt.Errorf("user not found: %w", store.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", store.ErrNotFound)
}
