package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
	"authgate/internal/platform/middleware"
	"authgate/internal/platform/tracer"
	dErrors "authgate/pkg/domain-errors"
)

// Authenticate validates an access token for a single request and
// returns the caller's identity. Check order is fixed: presence,
// revocation, signature/expiry, session, account status, lockout, and
// finally the activity touch. Revocation runs before signature checks so
// a revoked token is reported as revoked even after it expires.
//
// The revocation registry fails closed: if its backing store cannot be
// reached the credential is refused rather than accepted unverified.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAuthenticate)
	var retErr error
	defer func() { span.End(retErr) }()

	start := s.now()
	defer func() { s.observeAuthenticateDuration(s.now().Sub(start).Seconds()) }()

	if accessToken == "" {
		s.logAuthFailure(ctx, "missing_token", false)
		retErr = dErrors.New(dErrors.CodeMissingToken, "missing access token")
		return nil, retErr
	}

	revoked, err := s.revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		s.logAuthFailure(ctx, "revocation_check_failed", true, "error", err)
		retErr = err
		return nil, retErr
	}
	if revoked {
		s.logAuthFailure(ctx, "token_revoked", false)
		retErr = dErrors.New(dErrors.CodeTokenRevoked, "token has been revoked")
		return nil, retErr
	}

	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		s.logAuthFailure(ctx, "invalid_token", false)
		retErr = err
		return nil, retErr
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		s.logAuthFailure(ctx, "invalid_token_subject", false)
		retErr = dErrors.New(dErrors.CodeInvalidSignature, "invalid token subject")
		return nil, retErr
	}
	span.SetAttributes(tracer.String("user_id", claims.UserID))

	session, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logAuthFailure(ctx, "session_not_found", false, "user_id", claims.UserID)
			retErr = dErrors.New(dErrors.CodeSessionNotFound, "no session for token")
			return nil, retErr
		}
		s.logAuthFailure(ctx, "session_lookup_failed", true, "user_id", claims.UserID, "error", err)
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to find session")
		return nil, retErr
	}
	if !session.IsActive {
		s.logAuthFailure(ctx, "session_inactive", false,
			"user_id", claims.UserID,
			"session_id", session.ID.String(),
		)
		retErr = dErrors.New(dErrors.CodeSessionNotFound, "session is no longer active")
		return nil, retErr
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logAuthFailure(ctx, "user_not_found", false, "user_id", claims.UserID)
			retErr = dErrors.New(dErrors.CodeUnauthorized, "user not found")
			return nil, retErr
		}
		s.logAuthFailure(ctx, "user_lookup_failed", true, "user_id", claims.UserID, "error", err)
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to find user")
		return nil, retErr
	}
	if user.Disabled() {
		s.logAuthFailure(ctx, "account_disabled", false,
			"user_id", claims.UserID,
			"status", user.Status.String(),
		)
		retErr = dErrors.New(dErrors.CodeAccountDisabled, "account is not active")
		return nil, retErr
	}
	if err := s.checkLock(ctx, user, s.now()); err != nil {
		s.logAuthFailure(ctx, "account_locked", false, "user_id", claims.UserID)
		retErr = err
		return nil, retErr
	}

	// Activity touch is best-effort: a failed write must not turn a valid
	// request into a 500. IP and user agent drift with the caller so the
	// session listing reflects where the credential was last presented.
	session.Touch(s.now(), middleware.GetClientIP(ctx), middleware.GetUserAgent(ctx))
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "failed to touch session",
			"session_id", session.ID.String(),
			"error", err,
		)
	}

	return &models.Identity{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: session.ID,
	}, nil
}

// UserInfo resolves the profile for an authenticated identity.
func (s *Service) UserInfo(ctx context.Context, identity *models.Identity) (*models.UserInfoResult, error) {
	user, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find user")
	}
	return &models.UserInfoResult{
		ID:        user.ID.String(),
		Email:     user.Email,
		Role:      user.Role.String(),
		Status:    user.Status.String(),
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Sessions lists the caller's active sessions, oldest first.
func (s *Service) Sessions(ctx context.Context, identity *models.Identity) (*models.SessionsResult, error) {
	active, err := s.sessions.ListActiveByUser(ctx, identity.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	result := &models.SessionsResult{Sessions: make([]models.SessionSummary, 0, len(active))}
	for _, session := range active {
		result.Sessions = append(result.Sessions, models.SessionSummary{
			SessionID:    session.ID.String(),
			Device:       session.DeviceName,
			IPAddress:    session.IPAddress,
			CreatedAt:    session.CreatedAt,
			LastActivity: session.LastAccessed,
			IsCurrent:    session.ID == identity.SessionID,
		})
	}
	return result, nil
}
