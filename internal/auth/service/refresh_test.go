package service

import (
	"context"
	"time"

	"authgate/internal/auth/models"
	dErrors "authgate/pkg/domain-errors"
)

func (s *ServiceSuite) TestRefreshRotatesPair() {
	s.seedUser("user@example.com", models.RoleUser)
	original := s.login("user@example.com")

	s.clock.Advance(time.Hour)
	rotated, err := s.service.Refresh(context.Background(), &models.RefreshRequest{
		RefreshToken: original.RefreshToken,
	})
	s.Require().NoError(err)
	s.NotEqual(original.AccessToken, rotated.AccessToken)
	s.NotEqual(original.RefreshToken, rotated.RefreshToken)
	s.Equal(original.SessionID, rotated.SessionID)

	// New pair works.
	_, err = s.service.Authenticate(context.Background(), rotated.AccessToken)
	s.NoError(err)

	// Old access token was revoked by the rotation.
	_, err = s.service.Authenticate(context.Background(), original.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
}

func (s *ServiceSuite) TestRefreshReplayFails() {
	s.seedUser("user@example.com", models.RoleUser)
	original := s.login("user@example.com")

	_, err := s.service.Refresh(context.Background(), &models.RefreshRequest{
		RefreshToken: original.RefreshToken,
	})
	s.Require().NoError(err)

	// The rotated-out refresh token no longer resolves a session.
	_, err = s.service.Refresh(context.Background(), &models.RefreshRequest{
		RefreshToken: original.RefreshToken,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidRefreshToken))
}

func (s *ServiceSuite) TestRefreshRejectsAccessToken() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	_, err := s.service.Refresh(context.Background(), &models.RefreshRequest{
		RefreshToken: result.AccessToken,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
}

func (s *ServiceSuite) TestRefreshExpiredRefreshToken() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.clock.Advance(8 * 24 * time.Hour)

	_, err := s.service.Refresh(context.Background(), &models.RefreshRequest{
		RefreshToken: result.RefreshToken,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *ServiceSuite) TestRefreshAfterLogout() {
	s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	s.Require().NoError(s.service.Logout(context.Background(), result.AccessToken))

	_, err := s.service.Refresh(context.Background(), &models.RefreshRequest{
		RefreshToken: result.RefreshToken,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
}

func (s *ServiceSuite) TestRefreshMissingToken() {
	_, err := s.service.Refresh(context.Background(), &models.RefreshRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeMissingToken))
}

func (s *ServiceSuite) TestRefreshDisabledAccount() {
	user := s.seedUser("user@example.com", models.RoleUser)
	result := s.login("user@example.com")

	user.Status = models.UserStatusSuspended
	s.Require().NoError(s.users.Save(context.Background(), user))

	_, err := s.service.Refresh(context.Background(), &models.RefreshRequest{
		RefreshToken: result.RefreshToken,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled))
}
