package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"authgate/internal/auth/guard"
	"authgate/internal/auth/models"
	platformMiddleware "authgate/internal/platform/middleware"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/httputil"
)

// Authenticator validates an access token and resolves the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Identity, error)
}

type identityKey struct{}

// GetIdentity returns the identity placed in the context by RequireAuth,
// or nil for unauthenticated requests.
func GetIdentity(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityKey{}).(*models.Identity)
	return identity
}

// WithIdentity attaches an identity to the context. Exported for handler
// tests that bypass the middleware.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// BearerToken extracts the credential from an Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid access token and attaches
// the resolved identity to the request context.
func RequireAuth(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeMissingToken, "missing bearer token"))
				return
			}

			// The user agent rides the context so the service can record
			// session drift without widening the Authenticator contract.
			ctx := platformMiddleware.WithUserAgent(r.Context(), r.UserAgent())

			identity, err := auth.Authenticate(ctx, token)
			if err != nil {
				if logger != nil && dErrors.HasCode(err, dErrors.CodeStoreUnavailable) {
					logger.ErrorContext(ctx, "authentication unavailable",
						"request_id", platformMiddleware.GetRequestID(ctx),
						"error", err,
					)
				}
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// writeAuthError adds a Retry-After header for lockout denials before
// delegating to the shared error writer.
func writeAuthError(w http.ResponseWriter, err error) {
	var lockErr *guard.LockoutError
	if errors.As(err, &lockErr) {
		retryAfter := int(time.Until(lockErr.Until).Seconds())
		if retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
	}
	httputil.WriteError(w, err)
}
