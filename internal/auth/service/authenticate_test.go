package service

import (
	"context"
	"time"

	"authgate/internal/auth/models"
	platformMW "authgate/internal/platform/middleware"
	dErrors "authgate/pkg/domain-errors"
)

func (s *ServiceSuite) TestAuthenticateMissingToken() {
	_, err := s.service.Authenticate(context.Background(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeMissingToken))
}

func (s *ServiceSuite) TestAuthenticateGarbageToken() {
	_, err := s.service.Authenticate(context.Background(), "not-a-jwt")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
}

func (s *ServiceSuite) TestAuthenticateExpiredToken() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.clock.Advance(testAccessTTL + time.Minute)

	_, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *ServiceSuite) TestAuthenticateAfterLogout() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.Require().NoError(s.service.Logout(context.Background(), result.AccessToken))

	// Revocation is reported, not just a missing session.
	_, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
}

func (s *ServiceSuite) TestAuthenticateRevocationStoreDown() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	// Fail closed: an unreachable revocation store refuses the request.
	s.counters.SetFailing(true)
	_, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}

func (s *ServiceSuite) TestAuthenticateDisabledMidSession() {
	user := s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	user.Status = models.UserStatusInactive
	s.Require().NoError(s.users.Save(context.Background(), user))

	_, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled))
}

func (s *ServiceSuite) TestAuthenticateTouchesSession() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.clock.Advance(time.Hour)
	identity, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.Require().NoError(err)

	session, err := s.sessions.FindByID(context.Background(), identity.SessionID)
	s.Require().NoError(err)
	s.WithinDuration(s.clock.Now(), session.LastAccessed, time.Second)
}

func (s *ServiceSuite) TestAuthenticateRecordsSessionDrift() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	// The same token presented from a new address and client follows the
	// caller onto the session record.
	ctx := platformMW.WithClientIP(context.Background(), "198.51.100.7")
	ctx = platformMW.WithUserAgent(ctx, "curl/8.5.0")

	s.clock.Advance(time.Minute)
	identity, err := s.service.Authenticate(ctx, result.AccessToken)
	s.Require().NoError(err)

	session, err := s.sessions.FindByID(context.Background(), identity.SessionID)
	s.Require().NoError(err)
	s.Equal("198.51.100.7", session.IPAddress)
	s.Equal("curl/8.5.0", session.UserAgent)
	s.WithinDuration(s.clock.Now(), session.LastAccessed, time.Second)

	// A request without resolved context leaves the recorded origin alone.
	s.clock.Advance(time.Minute)
	_, err = s.service.Authenticate(context.Background(), result.AccessToken)
	s.Require().NoError(err)

	session, err = s.sessions.FindByID(context.Background(), identity.SessionID)
	s.Require().NoError(err)
	s.Equal("198.51.100.7", session.IPAddress)
	s.Equal("curl/8.5.0", session.UserAgent)
}

func (s *ServiceSuite) TestUserInfo() {
	s.seedUser("user@example.com", models.RolePremium)
	result := s.login("user@example.com")

	identity, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.Require().NoError(err)

	info, err := s.service.UserInfo(context.Background(), identity)
	s.Require().NoError(err)
	s.Equal("user@example.com", info.Email)
	s.Equal("premium", info.Role)
	s.NotNil(info.LastLogin)
}

func (s *ServiceSuite) TestSessionsListsCurrent() {
	s.seedUser("user@example.com", models.RoleUser)
	first := s.login("user@example.com")
	s.clock.Advance(time.Minute)
	second := s.login("user@example.com")

	identity, err := s.service.Authenticate(context.Background(), second.AccessToken)
	s.Require().NoError(err)

	list, err := s.service.Sessions(context.Background(), identity)
	s.Require().NoError(err)
	s.Require().Len(list.Sessions, 2)
	s.False(list.Sessions[0].IsCurrent)
	s.True(list.Sessions[1].IsCurrent)
	_ = first
}
