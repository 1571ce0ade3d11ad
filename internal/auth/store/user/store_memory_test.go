package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
)

func seedUser(t *testing.T, s *InMemoryStore) *models.User {
	t.Helper()
	user, err := models.NewUser(uuid.New(), "user@example.com", "hash", models.RoleUser, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), user))
	return user
}

func TestSaveAndFind(t *testing.T) {
	s := New()
	user := seedUser(t, s)

	byID, err := s.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := s.FindByEmail(context.Background(), "USER@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestFindNotFound(t *testing.T) {
	s := New()

	_, err := s.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveOverwritesLockoutState(t *testing.T) {
	s := New()
	user := seedUser(t, s)

	until := time.Now().Add(30 * time.Minute)
	user.FailedLoginCount = 5
	user.LockedUntil = &until
	require.NoError(t, s.Save(context.Background(), user))

	found, err := s.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.FailedLoginCount)
	require.NotNil(t, found.LockedUntil)
	assert.True(t, found.LockedUntil.Equal(until))
}

func TestFindReturnsCopy(t *testing.T) {
	s := New()
	user := seedUser(t, s)

	found, err := s.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	found.FailedLoginCount = 99

	again, err := s.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, again.FailedLoginCount)
}
