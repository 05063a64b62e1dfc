package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreChallengeOneShot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryStore()
	expires := time.Now().Add(DefaultTTL)

	require.NoError(t, store.PutChallenge(ctx, "user-1", "challenge-value", expires))

	t.Run("take returns the stored value once", func(t *testing.T) {
		value, expiresAt, err := store.TakeChallenge(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, "challenge-value", value)
		require.Equal(t, expires, expiresAt)
	})

	t.Run("second take fails", func(t *testing.T) {
		_, _, err := store.TakeChallenge(ctx, "user-1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reissue overwrites", func(t *testing.T) {
		require.NoError(t, store.PutChallenge(ctx, "user-1", "first", expires))
		require.NoError(t, store.PutChallenge(ctx, "user-1", "second", expires))

		value, _, err := store.TakeChallenge(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, "second", value)
	})
}

func TestMemoryStoreVerifiedFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryStore()
	expires := time.Now().Add(DefaultTTL)

	require.NoError(t, store.PutVerified(ctx, "user-1", expires))

	expiresAt, err := store.TakeVerified(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, expires, expiresAt)

	_, err = store.TakeVerified(ctx, "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.PutChallenge(ctx, "stale", "v", now.Add(time.Minute)))
	require.NoError(t, store.PutChallenge(ctx, "fresh", "v", now.Add(time.Hour)))
	require.NoError(t, store.PutVerified(ctx, "stale", now.Add(time.Minute)))

	now = now.Add(10 * time.Minute)
	require.NoError(t, store.Sweep(ctx))

	_, _, err := store.TakeChallenge(ctx, "stale")
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = store.TakeChallenge(ctx, "fresh")
	require.NoError(t, err)

	_, err = store.TakeVerified(ctx, "stale")
	require.ErrorIs(t, err, ErrNotFound)
}
