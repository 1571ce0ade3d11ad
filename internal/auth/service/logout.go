package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
	"authgate/internal/platform/tracer"
	dErrors "authgate/pkg/domain-errors"
)

// logoutAllConcurrency bounds parallel revocation writes during logout-all.
const logoutAllConcurrency = 4

// Logout revokes an access token and closes its session. The operation
// is idempotent: logging out an already-closed or expired session
// succeeds, so a retried logout never surfaces an error to the client.
// Only a forged token (bad signature) is rejected.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLogout)
	var retErr error
	defer func() { span.End(retErr) }()

	if accessToken == "" {
		retErr = dErrors.New(dErrors.CodeMissingToken, "missing access token")
		return retErr
	}

	// Expiry is deliberately not validated here: revoking an expired
	// token is a no-op, not an error.
	claims, err := s.codec.ParseSkipExpiry(accessToken)
	if err != nil {
		s.logAuthFailure(ctx, "invalid_token", false)
		retErr = err
		return retErr
	}
	span.SetAttributes(tracer.String("user_id", claims.UserID))
	now := s.now()

	if claims.ExpiresAt == nil {
		retErr = dErrors.New(dErrors.CodeInvalidSignature, "token has no expiry")
		return retErr
	}
	if ttl := claims.ExpiresAt.Time.Sub(now); ttl > 0 {
		if err := s.revocations.Revoke(ctx, accessToken, ttl); err != nil {
			retErr = err
			return retErr
		}
	}

	session, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already logged out or rotated away.
			return nil
		}
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to find session")
		return retErr
	}

	if ttl := session.RefreshExpiresAt.Sub(now); ttl > 0 {
		if err := s.revocations.Revoke(ctx, session.RefreshToken, ttl); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke refresh token on logout",
				"session_id", session.ID.String(),
				"error", err,
			)
		}
	}

	if session.Deactivate() {
		if err := s.sessions.Save(ctx, session); err != nil {
			retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to close session")
			return retErr
		}
		s.decrementActiveSessions(1)
	}

	s.logAudit(ctx, audit.EventLogout, audit.SeverityInfo,
		"user_id", claims.UserID,
		"session_id", session.ID.String(),
	)
	s.incrementTokenRevocation()
	return nil
}

// LogoutAll closes every active session for an identity. Revocation
// writes are best-effort and run concurrently; a failed write is logged
// but does not stop the remaining sessions from being closed, because
// the deactivation below is what actually severs them.
func (s *Service) LogoutAll(ctx context.Context, identity *models.Identity) (*models.LogoutAllResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLogoutAll)
	var retErr error
	defer func() { span.End(retErr) }()
	span.SetAttributes(tracer.String("user_id", identity.UserID.String()))

	active, err := s.sessions.ListActiveByUser(ctx, identity.UserID)
	if err != nil {
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
		return nil, retErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(logoutAllConcurrency)
	for _, session := range active {
		g.Go(func() error {
			s.revokeSessionTokens(gctx, session)
			return nil
		})
	}
	_ = g.Wait()

	count, err := s.sessions.DeactivateAllByUser(ctx, identity.UserID)
	if err != nil {
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate sessions")
		return nil, retErr
	}

	s.logAudit(ctx, audit.EventSessionsRevoked, audit.SeverityMedium,
		"user_id", identity.UserID.String(),
		"sessions", count,
	)
	s.decrementActiveSessions(count)
	s.incrementTokenRevocation()

	return &models.LogoutAllResult{SessionsRevoked: count}, nil
}

// revokeSessionTokens blacklists both of a session's tokens for their
// remaining lifetimes. Failures are logged, not returned: the session
// deactivation that follows is the authoritative invalidation.
func (s *Service) revokeSessionTokens(ctx context.Context, session *models.Session) {
	now := s.now()
	if ttl := session.AccessExpiresAt.Sub(now); ttl > 0 {
		if err := s.revocations.Revoke(ctx, session.AccessToken, ttl); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke access token",
				"session_id", session.ID.String(),
				"error", err,
			)
		}
	}
	if ttl := session.RefreshExpiresAt.Sub(now); ttl > 0 {
		if err := s.revocations.Revoke(ctx, session.RefreshToken, ttl); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke refresh token",
				"session_id", session.ID.String(),
				"error", err,
			)
		}
	}
}
