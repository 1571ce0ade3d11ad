package service

import (
	"context"
	"time"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	platformMW "authgate/internal/platform/middleware"
	dErrors "authgate/pkg/domain-errors"
)

func (s *ServiceSuite) TestLogoutClosesSession() {
	user := s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.Require().NoError(s.service.Logout(context.Background(), result.AccessToken))

	count, err := s.sessions.CountActiveByUser(context.Background(), user.ID)
	s.Require().NoError(err)
	s.Zero(count)

	// Both credentials are dead.
	_, err = s.service.Authenticate(context.Background(), result.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
	_, err = s.service.Refresh(context.Background(), &models.RefreshRequest{RefreshToken: result.RefreshToken})
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
}

func (s *ServiceSuite) TestLogoutIsIdempotent() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.Require().NoError(s.service.Logout(context.Background(), result.AccessToken))
	s.Require().NoError(s.service.Logout(context.Background(), result.AccessToken))
}

func (s *ServiceSuite) TestLogoutExpiredTokenSucceeds() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.clock.Advance(testAccessTTL + time.Hour)

	s.NoError(s.service.Logout(context.Background(), result.AccessToken))
}

func (s *ServiceSuite) TestLogoutForgedTokenRejected() {
	err := s.service.Logout(context.Background(), "not-a-jwt")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))

	err = s.service.Logout(context.Background(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeMissingToken))
}

func (s *ServiceSuite) TestLogoutAllClosesEverySession() {
	user := s.seedUser("user@example.com", models.RoleUser)

	results := make([]*models.TokenResult, 0, 3)
	for range 3 {
		results = append(results, s.login("user@example.com"))
		s.clock.Advance(time.Minute)
	}

	identity, err := s.service.Authenticate(context.Background(), results[2].AccessToken)
	s.Require().NoError(err)

	out, err := s.service.LogoutAll(context.Background(), identity)
	s.Require().NoError(err)
	s.Equal(3, out.SessionsRevoked)

	for _, r := range results {
		_, err := s.service.Authenticate(context.Background(), r.AccessToken)
		s.Error(err)
		_, err = s.service.Refresh(context.Background(), &models.RefreshRequest{RefreshToken: r.RefreshToken})
		s.Error(err)
	}

	count, err := s.sessions.CountActiveByUser(context.Background(), user.ID)
	s.Require().NoError(err)
	s.Zero(count)

	// A second call finds nothing to do.
	out, err = s.service.LogoutAll(context.Background(), identity)
	s.Require().NoError(err)
	s.Zero(out.SessionsRevoked)
}

func (s *ServiceSuite) TestLogoutAllSurvivesRevocationOutage() {
	user := s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	identity, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.Require().NoError(err)

	// Revocation writes fail, but deactivation still severs the sessions.
	s.counters.SetFailing(true)
	out, err := s.service.LogoutAll(context.Background(), identity)
	s.Require().NoError(err)
	s.Equal(1, out.SessionsRevoked)
	s.counters.SetFailing(false)

	count, err := s.sessions.CountActiveByUser(context.Background(), user.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestLoginEmitsAuditEvents() {
	user := s.seedUser("user@example.com", models.RoleUser)
	ctx := platformMW.WithClientIP(context.Background(), "203.0.113.9")

	// A failed attempt lands in the security trail with its source IP.
	_, err := s.service.Login(ctx, &models.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})
	s.Require().Error(err)

	result, err := s.service.Login(ctx, &models.LoginRequest{
		Email:    "user@example.com",
		Password: testPassword,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.service.Logout(ctx, result.AccessToken))

	events, err := s.auditStore.ListByUser(context.Background(), user.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(string(audit.EventLoginFailed), events[0].Action)
	s.Equal("203.0.113.9", events[0].IP)
	s.Equal("invalid_password", events[0].Details["reason"])
	s.Equal(string(audit.EventLoginSuccess), events[1].Action)
	s.Equal(string(audit.EventLogout), events[2].Action)
}

func (s *ServiceSuite) TestUnknownEmailEmitsAuditEvent() {
	ctx := platformMW.WithClientIP(context.Background(), "203.0.113.9")
	_, err := s.service.Login(ctx, &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	s.Require().Error(err)

	// No account resolved, so the event carries only the source IP.
	events, err := s.auditStore.ListByUser(context.Background(), "")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventLoginFailed), events[0].Action)
	s.Equal("203.0.113.9", events[0].IP)
	s.Equal("unknown_email", events[0].Details["reason"])
}
