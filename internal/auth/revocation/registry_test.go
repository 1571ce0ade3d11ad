package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/counterstore"
	dErrors "authgate/pkg/domain-errors"
)

func newTestRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRegistry(counterstore.NewRedis(client)), mr
}

func TestRevokeThenIsRevoked(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	revoked, err := registry.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, registry.Revoke(ctx, "some-token", time.Hour))

	revoked, err = registry.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Other tokens are unaffected.
	revoked, err = registry.IsRevoked(ctx, "other-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationExpiresWithToken(t *testing.T) {
	registry, mr := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "some-token", time.Minute))

	mr.FastForward(2 * time.Minute)

	revoked, err := registry.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	registry, mr := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "some-token", -time.Minute))
	assert.Empty(t, mr.Keys())
}

func TestIsRevokedStoreUnavailable(t *testing.T) {
	registry, mr := newTestRegistry(t)
	ctx := context.Background()

	mr.Close()

	_, err := registry.IsRevoked(ctx, "some-token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}

func TestRevokeEmptyToken(t *testing.T) {
	registry, _ := newTestRegistry(t)
	err := registry.Revoke(context.Background(), "", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
