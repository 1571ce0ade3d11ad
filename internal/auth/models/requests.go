package models

import (
	"strings"

	dErrors "authgate/pkg/domain-errors"
)

// LoginRequest carries credentials plus the request context captured by
// the transport layer.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=1,max=128"`

	// Populated by the handler, not the client.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Normalize trims and lowercases the email for lookup.
func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Validate enforces basic invariants before the service touches storage.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// RefreshRequest carries a refresh token plus request context.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

func (r *RefreshRequest) Validate() error {
	if r.RefreshToken == "" {
		return dErrors.New(dErrors.CodeMissingToken, "refresh_token is required")
	}
	return nil
}
