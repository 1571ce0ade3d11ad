package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/audit"
	authMW "authgate/internal/auth/middleware"
	authModels "authgate/internal/auth/models"
	platformMW "authgate/internal/platform/middleware"
	"authgate/internal/ratelimit/models"
	"authgate/internal/ratelimit/service"
)

type stubLimiter struct {
	enabled  bool
	decision models.Decision

	lastSubject service.Subject
	loginEmail  string
	loginIP     string
}

func (s *stubLimiter) Admit(_ context.Context, subject service.Subject) models.Decision {
	s.lastSubject = subject
	return s.decision
}

func (s *stubLimiter) AdmitLogin(_ context.Context, email, ip string) models.Decision {
	s.loginEmail = email
	s.loginIP = ip
	return s.decision
}

func (s *stubLimiter) Enabled() bool { return s.enabled }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func allowedDecision() models.Decision {
	return models.Decision{Allowed: true, Rule: "anonymous", Limit: 20, Remaining: 12, ResetAt: time.Unix(1700000000, 0)}
}

func deniedDecision() models.Decision {
	return models.Decision{Allowed: false, Rule: "anonymous", Limit: 20, Remaining: 0, RetryAfter: 37, ResetAt: time.Unix(1700000000, 0)}
}

func TestLimitAllowsAndSetsHeaders(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: allowedDecision()}
	handler := New(limiter, discardLogger()).Limit(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "12", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1700000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestLimitDenies(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: deniedDecision()}
	handler := New(limiter, discardLogger()).Limit(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "37", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestLimitKeysAuthenticatedRequestsByUser(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: allowedDecision()}
	handler := New(limiter, discardLogger()).Limit(okHandler())

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	identity := &authModels.Identity{UserID: userID, Role: authModels.RolePremium}
	req = req.WithContext(authMW.WithIdentity(req.Context(), identity))

	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, models.KeyPrefixUser, limiter.lastSubject.Prefix)
	assert.Equal(t, userID.String(), limiter.lastSubject.Identifier)
	assert.Equal(t, models.TierPremium, limiter.lastSubject.Tier)
}

func TestLimitAnonymousFallsBackToIP(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: allowedDecision()}
	handler := platformMW.ClientIP(New(limiter, discardLogger()).Limit(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, models.KeyPrefixIP, limiter.lastSubject.Prefix)
	assert.Equal(t, "203.0.113.9", limiter.lastSubject.Identifier)
	assert.Equal(t, models.TierAnonymous, limiter.lastSubject.Tier)
}

func TestLimitDisabledPassesThrough(t *testing.T) {
	limiter := &stubLimiter{enabled: false, decision: deniedDecision()}
	handler := New(limiter, discardLogger()).Limit(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestLimitLoginPeeksEmailAndRestoresBody(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: allowedDecision()}

	var seenBody string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seenBody = string(raw)
		w.WriteHeader(http.StatusOK)
	})
	handler := platformMW.ClientIP(New(limiter, discardLogger()).LimitLogin(inner))

	payload := `{"email":"user@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(payload))
	req.RemoteAddr = "203.0.113.9:54321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", limiter.loginEmail)
	assert.Equal(t, "203.0.113.9", limiter.loginIP)
	assert.Equal(t, payload, seenBody, "handler must see the untouched body")
}

func TestLimitLoginOversizedBodyBoundsPeek(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: allowedDecision()}

	var seenLen int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seenLen = len(raw)
		w.WriteHeader(http.StatusOK)
	})
	handler := platformMW.ClientIP(New(limiter, discardLogger()).LimitLogin(inner))

	// Padding pushes the payload past the peek budget; the peek reads a
	// bounded prefix, keys by IP only, and the handler still sees every
	// byte.
	payload := `{"email":"user@example.com","padding":"` + strings.Repeat("a", 8<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(payload))
	req.RemoteAddr = "203.0.113.9:54321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, limiter.loginEmail)
	assert.Equal(t, "203.0.113.9", limiter.loginIP)
	assert.Equal(t, len(payload), seenLen, "handler must see the full body")
}

func TestLimitLoginMalformedBodyFallsBackToIPOnly(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: allowedDecision()}
	handler := platformMW.ClientIP(New(limiter, discardLogger()).LimitLogin(okHandler()))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
	req.RemoteAddr = "203.0.113.9:54321"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, limiter.loginEmail)
	assert.Equal(t, "203.0.113.9", limiter.loginIP)
}

func TestDenyEmitsAuditEvent(t *testing.T) {
	limiter := &stubLimiter{enabled: true, decision: deniedDecision()}
	store := audit.NewInMemoryStore()
	publisher := audit.NewPublisher(store)
	handler := New(limiter, discardLogger(), WithAuditPublisher(publisher)).Limit(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/sessions", nil))

	events, err := store.ListByUser(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRateLimitOffense), events[0].Action)
	assert.Equal(t, audit.SeverityMedium, events[0].Severity)
	assert.Equal(t, "/auth/sessions", events[0].URL)
}
