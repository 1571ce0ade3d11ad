package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"authgate/internal/counterstore"
	dErrors "authgate/pkg/domain-errors"
)

const keyPrefix = "rv:"

// Registry tracks revoked credentials until their natural expiry.
// Entries are keyed by a digest of the token so raw credentials never
// land in the backing store.
type Registry struct {
	store  counterstore.Store
	logger *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRegistry(store counterstore.Store, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Revoke marks a token revoked for the given remaining lifetime. A ttl
// at or below zero means the token has already expired and there is
// nothing to record.
func (r *Registry) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot revoke empty token")
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.store.Set(ctx, tokenKey(token), "1", ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to record revocation")
	}
	return nil
}

// IsRevoked reports whether a token has been revoked. A store failure
// is returned as an error so callers can refuse the credential rather
// than accept a token whose status is unknown.
func (r *Registry) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "cannot check empty token")
	}
	revoked, err := r.store.Exists(ctx, tokenKey(token))
	if err != nil {
		if errors.Is(err, counterstore.ErrUnavailable) {
			r.logger.ErrorContext(ctx, "revocation store unavailable, refusing credential", "error", err)
		}
		return false, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to check revocation")
	}
	return revoked, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}
