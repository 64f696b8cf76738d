package jwt_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbuilder/configurator/pkg/jwt"
)

func TestMemoryRevocationList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	list := jwt.NewMemoryRevocationList()

	t.Run("revoked until expiry", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, list.Revoke(ctx, "active", time.Now().Add(time.Hour)))

		revoked, err := list.IsRevoked(ctx, "active")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("already expired tokens are not stored", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, list.Revoke(ctx, "stale", time.Now().Add(-time.Second)))

		revoked, err := list.IsRevoked(ctx, "stale")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		revoked, err := list.IsRevoked(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, list.Revoke(ctx, "", time.Now().Add(time.Hour)), jwt.ErrTokenInvalid)
	})
}

func TestMemoryRevocationList_Clock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	list := jwt.NewMemoryRevocationList(jwt.WithRevocationClock(func() time.Time { return now }))

	// Expiry in the past by wall time but in the future for the list's clock.
	require.NoError(t, list.Revoke(ctx, "session", now.Add(time.Hour)))

	revoked, err := list.IsRevoked(ctx, "session")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = list.IsRevoked(ctx, "session")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevocationList(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	list := jwt.NewRedisRevocationList(client)
	id := uuid.NewString()

	revoked, err := list.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, id, time.Now().Add(time.Minute)))

	revoked, err = list.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, jwt.DefaultRevocationPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
