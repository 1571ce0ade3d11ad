// Package counterstore defines the shared key-value contract used by the
// revocation registry and the rate limiter. All server instances point at
// the same backing store, so counters and revocation marks stay correct
// under concurrent access from multiple processes.
//
// Key namespace is partitioned by a fixed prefix per concern ("rv:" for
// revocation, "rl:" for rate limiting); only the owning component mutates
// its partition.
package counterstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable wraps transport failures talking to the backing store.
	// Callers decide fail-open vs fail-closed; the store only reports.
	ErrUnavailable = errors.New("counter store unavailable")
)

// Store is the shared counter/presence contract.
// Error Contract: Get returns ErrNotFound for missing keys; every method
// wraps infrastructure failures with ErrUnavailable.
type Store interface {
	// Incr atomically increments the counter at key and returns the new
	// value. The TTL is applied only when the increment creates the key,
	// giving fixed-window semantics: the window starts at the first hit.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the raw value stored at key.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining lifetime of key, or zero when the key does
	// not exist or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
}
