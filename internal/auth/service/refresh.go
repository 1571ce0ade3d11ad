package service

import (
	"context"
	"errors"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
	"authgate/internal/platform/tracer"
	dErrors "authgate/pkg/domain-errors"
)

// Refresh rotates a session's token pair. The old tokens are overwritten
// on the session, so a replayed refresh token stops resolving the moment
// the rotation is saved; the old access token is additionally revoked
// for its remaining lifetime.
func (s *Service) Refresh(ctx context.Context, req *models.RefreshRequest) (*models.TokenResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRefresh)
	var retErr error
	defer func() { span.End(retErr) }()

	if err := req.Validate(); err != nil {
		retErr = err
		return nil, err
	}
	now := s.now()

	revoked, err := s.revocations.IsRevoked(ctx, req.RefreshToken)
	if err != nil {
		s.logAuthFailure(ctx, "revocation_check_failed", true, "error", err)
		retErr = err
		return nil, retErr
	}
	if revoked {
		s.logAuthFailure(ctx, "refresh_token_revoked", false)
		retErr = dErrors.New(dErrors.CodeTokenRevoked, "refresh token has been revoked")
		return nil, retErr
	}

	claims, err := s.codec.VerifyRefresh(req.RefreshToken)
	if err != nil {
		s.logAuthFailure(ctx, "invalid_refresh_token", false)
		retErr = err
		return nil, retErr
	}
	span.SetAttributes(tracer.String("user_id", claims.UserID))

	session, err := s.sessions.FindByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Valid signature but no session: the token was already rotated
			// out or the session was closed. Treat replay as a denial.
			s.logAuthFailure(ctx, "refresh_token_replayed", false, "user_id", claims.UserID)
			retErr = dErrors.New(dErrors.CodeInvalidRefreshToken, "refresh token is no longer valid")
			return nil, retErr
		}
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to find session")
		return nil, retErr
	}
	if !session.IsActive {
		s.logAuthFailure(ctx, "session_inactive", false,
			"user_id", claims.UserID,
			"session_id", session.ID.String(),
		)
		retErr = dErrors.New(dErrors.CodeInvalidRefreshToken, "refresh token is no longer valid")
		return nil, retErr
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			retErr = dErrors.New(dErrors.CodeUnauthorized, "user not found")
			return nil, retErr
		}
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to find user")
		return nil, retErr
	}
	if user.Disabled() {
		s.logAuthFailure(ctx, "account_disabled", false, "user_id", claims.UserID)
		retErr = dErrors.New(dErrors.CodeAccountDisabled, "account is not active")
		return nil, retErr
	}
	if err := s.checkLock(ctx, user, now); err != nil {
		s.logAuthFailure(ctx, "account_locked", false, "user_id", claims.UserID)
		retErr = err
		return nil, retErr
	}

	pair, err := s.codec.Issue(user.ID, user.Role, now)
	if err != nil {
		retErr = err
		return nil, err
	}

	// Blacklist the outgoing access token for its remaining lifetime; the
	// refresh token is invalidated by the overwrite below.
	oldAccess := session.AccessToken
	if ttl := session.AccessExpiresAt.Sub(now); ttl > 0 {
		if err := s.revocations.Revoke(ctx, oldAccess, ttl); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke rotated access token",
				"session_id", session.ID.String(),
				"error", err,
			)
		}
	}

	session.Rotate(pair.AccessToken, pair.RefreshToken, pair.AccessExpiresAt, pair.RefreshExpiresAt)
	session.Touch(now, req.IPAddress, req.UserAgent)
	if err := s.sessions.Save(ctx, session); err != nil {
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to save rotated session")
		return nil, retErr
	}

	s.logAudit(ctx, audit.EventTokenRefreshed, audit.SeverityInfo,
		"user_id", user.ID.String(),
		"session_id", session.ID.String(),
	)
	s.incrementTokenRefresh()

	return &models.TokenResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(s.codec.AccessTTL().Seconds()),
		TokenType:    "Bearer",
		SessionID:    session.ID.String(),
	}, nil
}
