package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openballot/votegate/internal/vote/challenge"
)

func TestChallengeConsume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := &ChallengeService{
		Store: challenge.NewMemoryStore(),
		Now:   func() time.Time { return now },
	}

	t.Run("issued challenge consumes once", func(t *testing.T) {
		value, err := svc.Issue(ctx, "user-1")
		require.NoError(t, err)
		require.NotEmpty(t, value)

		require.NoError(t, svc.Consume(ctx, "user-1", value))
		require.ErrorIs(t, svc.Consume(ctx, "user-1", value), ErrChallengeExpired)
	})

	t.Run("mismatch burns the challenge", func(t *testing.T) {
		value, err := svc.Issue(ctx, "user-1")
		require.NoError(t, err)

		require.ErrorIs(t, svc.Consume(ctx, "user-1", "wrong"), ErrChallengeExpired)
		// The real value no longer works either.
		require.ErrorIs(t, svc.Consume(ctx, "user-1", value), ErrChallengeExpired)
	})

	t.Run("expired challenge is rejected", func(t *testing.T) {
		value, err := svc.Issue(ctx, "user-1")
		require.NoError(t, err)

		now = now.Add(challenge.DefaultTTL + time.Second)
		defer func() { now = now.Add(-(challenge.DefaultTTL + time.Second)) }()

		require.ErrorIs(t, svc.Consume(ctx, "user-1", value), ErrChallengeExpired)
	})

	t.Run("padding and alphabet variants compare equal", func(t *testing.T) {
		require.NoError(t, svc.Store.PutChallenge(ctx, "user-2", "a-b_c", now.Add(time.Minute)))
		require.NoError(t, svc.Consume(ctx, "user-2", "a+b/c=="))
	})

	t.Run("challenges are per user", func(t *testing.T) {
		value, err := svc.Issue(ctx, "user-1")
		require.NoError(t, err)

		require.ErrorIs(t, svc.Consume(ctx, "someone-else", value), ErrChallengeExpired)
		require.NoError(t, svc.Consume(ctx, "user-1", value))
	})
}

func TestVerifiedFlagLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := &ChallengeService{
		Store: challenge.NewMemoryStore(),
		Now:   func() time.Time { return now },
	}

	t.Run("consume once", func(t *testing.T) {
		require.NoError(t, svc.MarkVerified(ctx, "user-1"))
		require.NoError(t, svc.ConsumeVerified(ctx, "user-1"))
		require.ErrorIs(t, svc.ConsumeVerified(ctx, "user-1"), ErrBiometricRequired)
	})

	t.Run("expired flag is rejected", func(t *testing.T) {
		require.NoError(t, svc.MarkVerified(ctx, "user-1"))
		now = now.Add(challenge.DefaultTTL + time.Second)

		require.ErrorIs(t, svc.ConsumeVerified(ctx, "user-1"), ErrBiometricRequired)
	})
}
