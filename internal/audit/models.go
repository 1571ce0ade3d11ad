package audit

import "time"

// Severity ranks security events for downstream alerting.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event is emitted from domain logic to capture key security actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    string
	Severity  Severity
	UserID    string
	IP        string
	Method    string
	URL       string
	Details   map[string]string
}

type AuditEvent string

const (
	EventLoginSuccess     AuditEvent = "login_success"
	EventLoginFailed      AuditEvent = "login_failed"
	EventAccountLocked    AuditEvent = "account_locked"
	EventTokenRefreshed   AuditEvent = "token_refreshed"
	EventTokenRevoked     AuditEvent = "token_revoked"
	EventLogout           AuditEvent = "logout"
	EventSessionsRevoked  AuditEvent = "sessions_revoked"
	EventSessionEvicted   AuditEvent = "session_evicted"
	EventAuthFailed       AuditEvent = "auth_failed"
	EventRateLimitOffense AuditEvent = "rate_limit_exceeded"
)
