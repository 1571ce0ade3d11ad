package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"authgate/internal/audit"
	"authgate/internal/auth/guard"
	"authgate/internal/auth/models"
	"authgate/internal/auth/tokens"
	"authgate/internal/platform/metrics"
	"authgate/internal/platform/tracer"
)

// UserStore defines the persistence interface for account data.
// Error Contract: All Find methods return store.ErrNotFound when the entity doesn't exist.
type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionStore defines the persistence interface for session data.
// Error Contract: All Find methods return store.ErrNotFound when the entity doesn't exist.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	FindByAccessToken(ctx context.Context, token string) (*models.Session, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeactivateAllByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// CredentialCodec signs and verifies the access/refresh token pair.
type CredentialCodec interface {
	Issue(userID uuid.UUID, role models.Role, now time.Time) (*tokens.Pair, error)
	VerifyAccess(token string) (*tokens.Claims, error)
	VerifyRefresh(token string) (*tokens.Claims, error)
	ParseSkipExpiry(token string) (*tokens.Claims, error)
	AccessTTL() time.Duration
}

// RevocationRegistry tracks revoked credentials until natural expiry.
type RevocationRegistry interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
// VerifyDummy burns a comparable amount of work when no account exists,
// keeping unknown-email and wrong-password timings indistinguishable.
type PasswordVerifier interface {
	Verify(hash, plaintext string) bool
	VerifyDummy(plaintext string)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service implements the authentication lifecycle: login, per-request
// authentication, refresh rotation and logout.
type Service struct {
	users       UserStore
	sessions    SessionStore
	codec       CredentialCodec
	revocations RevocationRegistry
	passwords   PasswordVerifier
	guard       *guard.Guard

	maxSessionsPerUser int

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         tracer.Tracer
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMaxSessionsPerUser caps concurrent active sessions per account.
// Zero or negative disables the cap. When exceeded, login deactivates
// the oldest session to make room.
func WithMaxSessionsPerUser(n int) Option {
	return func(s *Service) {
		s.maxSessionsPerUser = n
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(users UserStore, sessions SessionStore, codec CredentialCodec, revocations RevocationRegistry, passwords PasswordVerifier, accountGuard *guard.Guard, opts ...Option) *Service {
	svc := &Service{
		users:       users,
		sessions:    sessions,
		codec:       codec,
		revocations: revocations,
		passwords:   passwords,
		guard:       accountGuard,
		tracer:      tracer.NewNoop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.guard == nil {
		svc.guard = guard.New(guard.DefaultThreshold, guard.DefaultLockWindow)
	}
	return svc
}
