package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mssola/useragent"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
	"authgate/internal/platform/tracer"
	dErrors "authgate/pkg/domain-errors"
)

// Login verifies credentials and opens a new session. A suspended or
// inactive account is refused before anything else: disabled is
// terminal, so neither the lock state nor the supplied password changes
// the answer, and the attempt never counts toward a lockout. After
// that, the lockout check runs before the credential check so a locked
// account does not confirm whether the password was right. Unknown
// emails burn a dummy hash comparison so response timing does not leak
// account existence.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLogin)
	var retErr error
	defer func() { span.End(retErr) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		retErr = err
		return nil, err
	}
	now := s.now()

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.passwords.VerifyDummy(req.Password)
			s.logAuthFailure(ctx, "unknown_email", false)
			s.emitLoginFailure(ctx, "unknown_email", "")
			s.incrementLoginFailure()
			retErr = dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password")
			return nil, retErr
		}
		s.logAuthFailure(ctx, "user_lookup_failed", true, "error", err)
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
		return nil, retErr
	}
	span.SetAttributes(tracer.String("user_id", user.ID.String()))

	if user.Disabled() {
		s.logAuthFailure(ctx, "account_disabled", false,
			"user_id", user.ID.String(),
			"status", user.Status.String(),
		)
		s.emitLoginFailure(ctx, "account_disabled", user.ID.String())
		s.incrementLoginFailure()
		retErr = dErrors.New(dErrors.CodeAccountDisabled, "account is not active")
		return nil, retErr
	}

	if err := s.checkLock(ctx, user, now); err != nil {
		s.logAuthFailure(ctx, "account_locked", false, "user_id", user.ID.String())
		s.emitLoginFailure(ctx, "account_locked", user.ID.String())
		s.incrementLoginFailure()
		retErr = err
		return nil, err
	}

	if !s.passwords.Verify(user.PasswordHash, req.Password) {
		retErr = s.handleFailedPassword(ctx, user)
		return nil, retErr
	}

	s.guard.RecordSuccess(user, now)
	user.UpdatedAt = now
	if err := s.users.Save(ctx, user); err != nil {
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		return nil, retErr
	}

	if err := s.enforceSessionCap(ctx, user); err != nil {
		retErr = err
		return nil, err
	}

	pair, err := s.codec.Issue(user.ID, user.Role, now)
	if err != nil {
		retErr = err
		return nil, err
	}

	session, err := models.NewSession(user.ID, pair.AccessToken, pair.RefreshToken,
		pair.AccessExpiresAt, pair.RefreshExpiresAt,
		req.IPAddress, req.UserAgent, deviceName(req.UserAgent), now)
	if err != nil {
		retErr = err
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		retErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
		return nil, retErr
	}

	s.logAudit(ctx, audit.EventLoginSuccess, audit.SeverityInfo,
		"user_id", user.ID.String(),
		"session_id", session.ID.String(),
	)
	s.incrementLoginSuccess()
	s.incrementSessionCreated()

	return &models.TokenResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(s.codec.AccessTTL().Seconds()),
		TokenType:    "Bearer",
		SessionID:    session.ID.String(),
	}, nil
}

// checkLock applies the guard and persists any lazy unlock it performs.
func (s *Service) checkLock(ctx context.Context, user *models.User, now time.Time) error {
	hadLock := user.LockedUntil != nil
	err := s.guard.Check(user, now)
	if err == nil && hadLock {
		// The lock window passed and the guard reset the counter.
		if saveErr := s.users.Save(ctx, user); saveErr != nil {
			return dErrors.Wrap(saveErr, dErrors.CodeInternal, "failed to clear expired lock")
		}
	}
	return err
}

func (s *Service) handleFailedPassword(ctx context.Context, user *models.User) error {
	now := s.now()
	lockedNow := s.guard.RecordFailure(user, now)
	user.UpdatedAt = now
	if err := s.users.Save(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}

	s.emitLoginFailure(ctx, "invalid_password", user.ID.String())
	s.incrementLoginFailure()
	if lockedNow {
		s.logAudit(ctx, audit.EventAccountLocked, audit.SeverityHigh,
			"user_id", user.ID.String(),
			"failed_attempts", fmt.Sprintf("%d", user.FailedLoginCount),
		)
		s.incrementAccountLockout()
		return s.guard.Check(user, now)
	}

	s.logAuthFailure(ctx, "invalid_password", false,
		"user_id", user.ID.String(),
		"failed_attempts", fmt.Sprintf("%d", user.FailedLoginCount),
	)
	return dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password")
}

// enforceSessionCap deactivates the oldest active session when the
// per-user cap is reached, revoking its credentials best-effort.
func (s *Service) enforceSessionCap(ctx context.Context, user *models.User) error {
	if s.maxSessionsPerUser <= 0 {
		return nil
	}
	count, err := s.sessions.CountActiveByUser(ctx, user.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sessions")
	}
	if count < s.maxSessionsPerUser {
		return nil
	}

	active, err := s.sessions.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	evict := count - s.maxSessionsPerUser + 1
	for i := 0; i < evict && i < len(active); i++ {
		oldest := active[i]
		s.revokeSessionTokens(ctx, oldest)
		oldest.Deactivate()
		if err := s.sessions.Save(ctx, oldest); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to evict session")
		}
		s.logAudit(ctx, audit.EventSessionEvicted, audit.SeverityLow,
			"user_id", user.ID.String(),
			"session_id", oldest.ID.String(),
		)
		s.decrementActiveSessions(1)
	}
	return nil
}

// deviceName renders a human-readable device label, e.g. "Chrome on Mac OS X".
func deviceName(uaString string) string {
	if uaString == "" {
		return "Unknown device"
	}
	ua := useragent.New(uaString)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}
