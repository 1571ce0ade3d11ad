package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "authgate/pkg/domain-errors"
)

// This file contains pure domain models for authentication: entities
// that should not depend on transport or HTTP-specific concerns.

// User represents an account in the auth domain.
// This is a pure domain entity - use UserInfoResult for JSON responses.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus

	// Lockout state. FailedLoginCount accumulates consecutive failures;
	// LockedUntil is set once the threshold is reached and cleared lazily
	// on the first attempt after it passes.
	FailedLoginCount int
	LockedUntil      *time.Time

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the account is in the active status.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Disabled returns true if the account status forbids authentication.
func (u *User) Disabled() bool {
	return u.Status != UserStatusActive
}

// IsLocked returns true if a lockout window is in effect at the given time.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RecordLogin clears lockout state and stamps the last successful login.
func (u *User) RecordLogin(at time.Time) {
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	u.LastLogin = &at
}

// Session represents an authenticated session and its lifecycle state.
// This is a pure domain entity - use SessionSummary for JSON responses.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID

	// Token binding. Refresh rotation overwrites these in place so that
	// tokens issued before the rotation stop resolving to the session.
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time

	// Request context captured at creation, for session management UI.
	IPAddress  string
	UserAgent  string
	DeviceName string // e.g., "Chrome on macOS"

	IsActive     bool
	LastAccessed time.Time
	CreatedAt    time.Time
}

// Expired returns true if the session's refresh lifetime has passed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.RefreshExpiresAt)
}

// AccessExpired returns true if the access token lifetime has passed.
func (s *Session) AccessExpired(now time.Time) bool {
	return now.After(s.AccessExpiresAt)
}

// Deactivate marks the session inactive. Returns true if the transition
// occurred, false if the session was already inactive.
func (s *Session) Deactivate() bool {
	if !s.IsActive {
		return false
	}
	s.IsActive = false
	return true
}

// Touch records request activity on the session: the last accessed time
// never moves backwards, and the originating IP and user agent follow
// the caller so the session listing shows where a credential was last
// used. Empty values leave the recorded context untouched.
func (s *Session) Touch(at time.Time, ip, userAgent string) {
	if at.After(s.LastAccessed) {
		s.LastAccessed = at
	}
	if ip != "" {
		s.IPAddress = ip
	}
	if userAgent != "" {
		s.UserAgent = userAgent
	}
}

// Rotate replaces the session's token pair in place. Expiries never move
// backwards so a clock skew cannot shorten an already issued lifetime.
func (s *Session) Rotate(accessToken, refreshToken string, accessExpiresAt, refreshExpiresAt time.Time) {
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	if accessExpiresAt.After(s.AccessExpiresAt) {
		s.AccessExpiresAt = accessExpiresAt
	}
	if refreshExpiresAt.After(s.RefreshExpiresAt) {
		s.RefreshExpiresAt = refreshExpiresAt
	}
}

// Identity is the result of a successful credential check, attached to
// the request context by the auth middleware.
type Identity struct {
	UserID    uuid.UUID
	Role      Role
	SessionID uuid.UUID
}

// NewUser constructs a User and enforces basic invariants.
func NewUser(id uuid.UUID, email, passwordHash string, role Role, now time.Time) (*User, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "user email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "user password hash cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid user role: "+role.String())
	}
	return &User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Status:       UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewSession constructs a Session and validates lifecycle invariants.
func NewSession(userID uuid.UUID, accessToken, refreshToken string, accessExpiresAt, refreshExpiresAt time.Time, ip, userAgent, deviceName string, now time.Time) (*Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "session tokens cannot be empty")
	}
	if accessExpiresAt.Before(now) || refreshExpiresAt.Before(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "session expiry must be in the future")
	}
	return &Session{
		ID:               uuid.New(),
		UserID:           userID,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
		IPAddress:        ip,
		UserAgent:        userAgent,
		DeviceName:       deviceName,
		IsActive:         true,
		LastAccessed:     now,
		CreatedAt:        now,
	}, nil
}
