package models

import "time"

// This file contains transport-layer response models for JSON output.
// These are shaped for API responses and should avoid domain behavior.

// TokenResult is the response payload for /auth/login and /auth/refresh.
type TokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds until access token expiration
	TokenType    string `json:"token_type"`
	SessionID    string `json:"session_id"`
}

// UserInfoResult is the /auth/me response payload.
type UserInfoResult struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SessionSummary represents an active session for display to the user.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Device       string    `json:"device"`
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IsCurrent    bool      `json:"is_current"`
}

// SessionsResult is the response to a list sessions request.
type SessionsResult struct {
	Sessions []SessionSummary `json:"sessions"`
}

// LogoutAllResult reports how many sessions a logout-all call closed.
type LogoutAllResult struct {
	SessionsRevoked int `json:"sessions_revoked"`
}
