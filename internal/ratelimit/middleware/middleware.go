package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"authgate/internal/audit"
	authMW "authgate/internal/auth/middleware"
	"authgate/internal/platform/middleware"
	"authgate/internal/ratelimit/models"
	"authgate/internal/ratelimit/service"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/httputil"
)

// Limiter is the admission decision surface this middleware consumes.
type Limiter interface {
	Admit(ctx context.Context, subject service.Subject) models.Decision
	AdmitLogin(ctx context.Context, email, ip string) models.Decision
	Enabled() bool
}

// AuditPublisher records rate limit offenses for security review.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
	audit   AuditPublisher
}

type Option func(*Middleware)

// WithAuditPublisher enables offense events on denials.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(m *Middleware) {
		m.audit = p
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Limit enforces the tiered budget for a request. Authenticated
// requests are keyed by user id at the tier their role grants;
// everything else shares the anonymous per-IP budget. Run this after
// the auth middleware so the identity is already resolved.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		subject := m.resolveSubject(ctx)

		decision := m.limiter.Admit(ctx, subject)
		addRateLimitHeaders(w, decision)

		if !decision.Allowed {
			m.deny(w, r, subject.Identifier, decision)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loginBody is the minimal shape peeked from login requests so repeated
// attempts against one account are throttled across source IPs.
type loginBody struct {
	Email string `json:"email"`
}

const maxLoginPeekBytes = 4 << 10

// LimitLogin applies the dedicated credential-guessing budget, keyed
// per email+IP. The request body is peeked for the email and restored
// for the handler; an unreadable body falls back to IP-only keying
// rather than rejecting the request.
func (m *Middleware) LimitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := middleware.GetClientIP(ctx)
		email := peekEmail(r)

		decision := m.limiter.AdmitLogin(ctx, email, ip)
		addRateLimitHeaders(w, decision)

		if !decision.Allowed {
			m.deny(w, r, email, decision)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolveSubject(ctx context.Context) service.Subject {
	if identity := authMW.GetIdentity(ctx); identity != nil {
		return service.Subject{
			Prefix:     models.KeyPrefixUser,
			Identifier: identity.UserID.String(),
			Tier:       models.TierForRole(identity.Role),
		}
	}
	return service.Subject{
		Prefix:     models.KeyPrefixIP,
		Identifier: middleware.GetClientIP(ctx),
		Tier:       models.TierAnonymous,
	}
}

func (m *Middleware) deny(w http.ResponseWriter, r *http.Request, identifier string, decision models.Decision) {
	ctx := r.Context()
	m.logger.WarnContext(ctx, "rate limit exceeded",
		"rule", decision.Rule,
		"limit", decision.Limit,
		"retry_after", decision.RetryAfter,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(ctx),
	)
	m.emitOffense(ctx, r, identifier, decision)

	w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, please try again later"))
}

func (m *Middleware) emitOffense(ctx context.Context, r *http.Request, identifier string, decision models.Decision) {
	if m.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    string(audit.EventRateLimitOffense),
		Severity:  audit.SeverityMedium,
		IP:        middleware.GetClientIP(ctx),
		Method:    r.Method,
		URL:       r.URL.Path,
		Details: map[string]string{
			"rule":       decision.Rule,
			"identifier": identifier,
		},
	}
	if err := m.audit.Emit(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "failed to emit rate limit audit event", "error", err)
	}
}

// peekEmail reads the login email without consuming the body the
// handler will decode. The read is bounded at the peek budget so an
// oversized payload is never buffered here; whatever was read is
// stitched back in front of the unread remainder.
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxLoginPeekBytes+1))
	r.Body = &peekedBody{
		Reader: io.MultiReader(bytes.NewReader(raw), r.Body),
		closer: r.Body,
	}
	if err != nil || len(raw) > maxLoginPeekBytes {
		return ""
	}

	var body loginBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Email
}

// peekedBody re-serves peeked bytes ahead of the unread body while
// keeping the original closer.
type peekedBody struct {
	io.Reader
	closer io.Closer
}

func (b *peekedBody) Close() error { return b.closer.Close() }

func addRateLimitHeaders(w http.ResponseWriter, decision models.Decision) {
	if decision.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
}
