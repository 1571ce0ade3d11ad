package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"authgate/internal/audit"
	"authgate/internal/auth/guard"
	"authgate/internal/auth/models"
	"authgate/internal/auth/revocation"
	sessionStore "authgate/internal/auth/store/session"
	userStore "authgate/internal/auth/store/user"
	"authgate/internal/auth/tokens"
	"authgate/internal/counterstore"
	"authgate/pkg/password"
)

const (
	testPassword  = "correct horse battery staple"
	testAccessTTL = 24 * time.Hour
	testLockout   = 30 * time.Minute
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ServiceSuite exercises the service against real in-memory stores, a
// real codec and a memory-backed revocation registry.
type ServiceSuite struct {
	suite.Suite
	clock       *fakeClock
	users       *userStore.InMemoryStore
	sessions    *sessionStore.InMemoryStore
	counters    *counterstore.InMemoryStore
	revocations *revocation.Registry
	codec       *tokens.Codec
	hasher      *password.Hasher
	auditStore  *audit.InMemoryStore
	service     *Service
}

func (s *ServiceSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Now()}
	s.users = userStore.New()
	s.sessions = sessionStore.New()
	s.counters = counterstore.NewMemory()
	s.counters.SetClock(s.clock.Now)
	s.revocations = revocation.NewRegistry(s.counters)
	s.codec = tokens.NewCodec("test-signing-key", "authgate-test", testAccessTTL, 7*24*time.Hour,
		tokens.WithTimeFunc(s.clock.Now))
	s.hasher = password.New(4) // min cost, tests only
	s.auditStore = audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.service = NewService(
		s.users, s.sessions, s.codec, s.revocations, s.hasher,
		guard.New(5, testLockout),
		WithLogger(logger),
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
		WithClock(s.clock.Now),
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// Shared test fixture builders - used across multiple test files

func (s *ServiceSuite) seedUser(email string, role models.Role) *models.User {
	hash, err := s.hasher.Hash(testPassword)
	s.Require().NoError(err)
	user, err := models.NewUser(uuid.New(), email, hash, role, s.clock.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Save(context.Background(), user))
	return user
}

func (s *ServiceSuite) login(email string) *models.TokenResult {
	result, err := s.service.Login(context.Background(), &models.LoginRequest{
		Email:     email,
		Password:  testPassword,
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(result.AccessToken)
	return result
}
