package service

import (
	"context"
	"errors"
	"time"

	"authgate/internal/auth/guard"
	"authgate/internal/auth/models"
	dErrors "authgate/pkg/domain-errors"
)

func (s *ServiceSuite) TestLoginSuccess() {
	user := s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.Equal("Bearer", result.TokenType)
	s.Equal(int(testAccessTTL.Seconds()), result.ExpiresIn)
	s.NotEmpty(result.RefreshToken)

	// The issued access token authenticates.
	identity, err := s.service.Authenticate(context.Background(), result.AccessToken)
	s.Require().NoError(err)
	s.Equal(user.ID, identity.UserID)
	s.Equal(models.RoleUser, identity.Role)

	// Last login and session context were recorded.
	saved, err := s.users.FindByID(context.Background(), user.ID)
	s.Require().NoError(err)
	s.NotNil(saved.LastLogin)

	session, err := s.sessions.FindByAccessToken(context.Background(), result.AccessToken)
	s.Require().NoError(err)
	s.Equal("203.0.113.9", session.IPAddress)
	s.Equal("Chrome on Mac OS X", session.DeviceName)
}

func (s *ServiceSuite) TestLoginUnknownEmail() {
	_, err := s.service.Login(context.Background(), &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	user := s.seedUser("user@example.com", models.RoleUser)

	_, err := s.service.Login(context.Background(), &models.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))

	saved, err := s.users.FindByID(context.Background(), user.ID)
	s.Require().NoError(err)
	s.Equal(1, saved.FailedLoginCount)
}

func (s *ServiceSuite) TestLoginValidation() {
	_, err := s.service.Login(context.Background(), &models.LoginRequest{Email: "", Password: "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Login(context.Background(), &models.LoginRequest{Email: "not-an-email", Password: "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Login(context.Background(), &models.LoginRequest{Email: "a@b.com", Password: ""})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestLoginLocksAfterFiveFailures() {
	s.seedUser("user@example.com", models.RoleUser)

	var err error
	for i := range 5 {
		_, err = s.service.Login(context.Background(), &models.LoginRequest{
			Email:    "user@example.com",
			Password: "wrong",
		})
		s.Require().Error(err, "attempt %d", i+1)
	}

	// The fifth failure reports the lock with its retry horizon.
	s.True(dErrors.HasCode(err, dErrors.CodeAccountLocked))
	var lockErr *guard.LockoutError
	s.Require().True(errors.As(err, &lockErr))
	s.WithinDuration(s.clock.Now().Add(testLockout), lockErr.Until, time.Second)

	// Even the correct password is refused while locked.
	_, err = s.service.Login(context.Background(), &models.LoginRequest{
		Email:    "user@example.com",
		Password: testPassword,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAccountLocked))
}

func (s *ServiceSuite) TestLoginUnlocksAfterWindow() {
	s.seedUser("user@example.com", models.RoleUser)

	for range 5 {
		_, _ = s.service.Login(context.Background(), &models.LoginRequest{
			Email:    "user@example.com",
			Password: "wrong",
		})
	}

	s.clock.Advance(testLockout + time.Minute)

	result := s.login("user@example.com")
	s.NotEmpty(result.AccessToken)
}

func (s *ServiceSuite) TestLoginDisabledAccount() {
	user := s.seedUser("user@example.com", models.RoleUser)
	user.Status = models.UserStatusSuspended
	s.Require().NoError(s.users.Save(context.Background(), user))

	_, err := s.service.Login(context.Background(), &models.LoginRequest{
		Email:    "user@example.com",
		Password: testPassword,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled))
}

func (s *ServiceSuite) TestLoginDisabledBeatsWrongPassword() {
	user := s.seedUser("user@example.com", models.RoleUser)
	user.Status = models.UserStatusSuspended
	s.Require().NoError(s.users.Save(context.Background(), user))

	// Disabled is terminal: the password is never consulted, so a wrong
	// one still reports disabled and the attempt does not count toward a
	// lockout.
	_, err := s.service.Login(context.Background(), &models.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled))

	saved, err := s.users.FindByID(context.Background(), user.ID)
	s.Require().NoError(err)
	s.Zero(saved.FailedLoginCount)
}

func (s *ServiceSuite) TestLoginDisabledBeatsLock() {
	user := s.seedUser("user@example.com", models.RoleUser)

	for range 5 {
		_, _ = s.service.Login(context.Background(), &models.LoginRequest{
			Email:    "user@example.com",
			Password: "wrong",
		})
	}

	locked, err := s.users.FindByID(context.Background(), user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(locked.LockedUntil)
	locked.Status = models.UserStatusSuspended
	s.Require().NoError(s.users.Save(context.Background(), locked))

	// A disabled account reports disabled even while a lock is in effect
	// and the password is correct.
	_, err = s.service.Login(context.Background(), &models.LoginRequest{
		Email:    "user@example.com",
		Password: testPassword,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled))
}

func (s *ServiceSuite) TestLoginSessionCapEvictsOldest() {
	s.service.maxSessionsPerUser = 2
	user := s.seedUser("user@example.com", models.RoleUser)

	first := s.login("user@example.com")
	s.clock.Advance(time.Minute)
	second := s.login("user@example.com")
	s.clock.Advance(time.Minute)
	third := s.login("user@example.com")

	count, err := s.sessions.CountActiveByUser(context.Background(), user.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	// The oldest session was evicted and its token revoked.
	_, err = s.service.Authenticate(context.Background(), first.AccessToken)
	s.Error(err)

	_, err = s.service.Authenticate(context.Background(), second.AccessToken)
	s.NoError(err)
	_, err = s.service.Authenticate(context.Background(), third.AccessToken)
	s.NoError(err)
}

func (s *ServiceSuite) TestLoginEmailCaseInsensitive() {
	s.seedUser("user@example.com", models.RoleUser)
	result, err := s.service.Login(context.Background(), &models.LoginRequest{
		Email:    "USER@Example.COM",
		Password: testPassword,
	})
	s.Require().NoError(err)
	s.NotEmpty(result.AccessToken)
}
