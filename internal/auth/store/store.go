package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"authgate/internal/auth/models"
	dErrors "authgate/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific not found errors consistent across
	// user/session implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")
)

// UserStore persists accounts, including lockout state.
type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionStore persists sessions. Tokens resolve to at most one session:
// refresh rotation overwrites the token columns in place, so credentials
// issued before a rotation stop resolving.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	FindByAccessToken(ctx context.Context, token string) (*models.Session, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeactivateAllByUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
