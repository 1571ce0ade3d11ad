package service

import (
	"context"

	"authgate/internal/audit"
	"authgate/internal/platform/middleware"
	"authgate/pkg/attrs"
)

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, severity audit.Severity, attributes ...any) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Severity: severity,
		UserID:   attrs.ExtractString(attributes, "user_id"),
		IP:       middleware.GetClientIP(ctx),
	})
}

// emitLoginFailure records a failed login attempt in the audit sink
// with its source IP, so credential attacks are reconstructable from
// the security trail alone. Slog and metrics are handled separately by
// logAuthFailure.
func (s *Service) emitLoginFailure(ctx context.Context, reason, userID string) {
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(audit.EventLoginFailed),
		Severity: audit.SeverityMedium,
		UserID:   userID,
		IP:       middleware.GetClientIP(ctx),
		Details:  map[string]string{"reason": reason},
	})
}

// logAuthFailure records a failed credential check. isError marks
// infrastructure failures, which log at error level; expected denials
// (bad password, revoked token) log at warn.
func (s *Service) logAuthFailure(ctx context.Context, reason string, isError bool, attributes ...any) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(audit.EventAuthFailed), "reason", reason, "log_type", "standard")
	s.incrementAuthFailure(reason)
	if s.logger == nil {
		return
	}
	if isError {
		s.logger.ErrorContext(ctx, string(audit.EventAuthFailed), args...)
		return
	}
	s.logger.WarnContext(ctx, string(audit.EventAuthFailed), args...)
}

func (s *Service) incrementLoginSuccess() {
	if s.metrics != nil {
		s.metrics.IncrementLoginSuccesses()
	}
}

func (s *Service) incrementLoginFailure() {
	if s.metrics != nil {
		s.metrics.IncrementLoginFailures()
	}
}

func (s *Service) incrementAccountLockout() {
	if s.metrics != nil {
		s.metrics.IncrementAccountLockouts()
	}
}

func (s *Service) incrementAuthFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementAuthFailures(reason)
	}
}

func (s *Service) incrementTokenRefresh() {
	if s.metrics != nil {
		s.metrics.IncrementTokenRefreshes()
	}
}

func (s *Service) incrementTokenRevocation() {
	if s.metrics != nil {
		s.metrics.IncrementTokenRevocations()
	}
}

func (s *Service) incrementSessionCreated() {
	if s.metrics != nil {
		s.metrics.IncrementSessionsCreated()
	}
}

func (s *Service) decrementActiveSessions(n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.DecrementActiveSessions(n)
	}
}

func (s *Service) observeAuthenticateDuration(seconds float64) {
	if s.metrics != nil {
		s.metrics.ObserveAuthenticateDuration(seconds)
	}
}
