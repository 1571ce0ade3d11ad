package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"authgate/internal/auth/guard"
	"authgate/internal/auth/handler"
	"authgate/internal/auth/models"
	"authgate/internal/auth/revocation"
	authservice "authgate/internal/auth/service"
	sessionstore "authgate/internal/auth/store/session"
	userstore "authgate/internal/auth/store/user"
	"authgate/internal/auth/tokens"
	"authgate/internal/counterstore"
	"authgate/internal/platform/config"
	rlMW "authgate/internal/ratelimit/middleware"
	rlservice "authgate/internal/ratelimit/service"
	httptransport "authgate/internal/transport/http"
	"authgate/pkg/password"
)

const (
	e2ePassword = "correct horse battery staple"

	// Budgets kept small enough that scenarios can exhaust them in a
	// handful of requests but large enough not to trip scenarios that
	// are about something else.
	e2eAnonymousLimit = 20
	e2eLoginLimit     = 10
)

// newTestServer boots the full router with in-memory stores. The user
// store is returned so steps can seed accounts directly.
func newTestServer() (*httptest.Server, *userstore.InMemoryStore) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := userstore.New()
	sessions := sessionstore.New()
	counters := counterstore.NewMemory()
	hasher := password.New(4)

	codec := tokens.NewCodec("e2e-signing-key", "authgate-e2e", time.Hour, 7*24*time.Hour)
	revocations := revocation.NewRegistry(counters, revocation.WithLogger(log))

	svc := authservice.NewService(
		users,
		sessions,
		codec,
		revocations,
		hasher,
		guard.New(5, 30*time.Minute),
		authservice.WithLogger(log),
	)

	limiter := rlservice.NewLimiter(counters, config.RateLimit{
		Enabled:   true,
		Anonymous: config.TierLimit{Requests: e2eAnonymousLimit, Window: time.Minute},
		User:      config.TierLimit{Requests: 50, Window: time.Minute},
		Pro:       config.TierLimit{Requests: 200, Window: time.Minute},
		Premium:   config.TierLimit{Requests: 500, Window: time.Minute},
		Hourly:    config.TierLimit{Requests: 2000, Window: time.Hour},
		Login:     config.TierLimit{Requests: e2eLoginLimit, Window: 15 * time.Minute},
	}, rlservice.WithLogger(log))

	router := httptransport.NewRouter(httptransport.Config{
		Auth:           handler.New(svc, log),
		Authenticator:  svc,
		RateLimit:      rlMW.New(limiter, log),
		RequestTimeout: 10 * time.Second,
	}, log)

	return httptest.NewServer(router), users
}

// seedUser registers an account directly in the store so login
// scenarios have credentials to work with.
func seedUser(users *userstore.InMemoryStore, email string) error {
	hash, err := password.New(4).Hash(e2ePassword)
	if err != nil {
		return err
	}
	user, err := models.NewUser(uuid.New(), email, hash, models.RoleUser, time.Now())
	if err != nil {
		return err
	}
	return users.Save(context.Background(), user)
}
