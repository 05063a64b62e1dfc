package challenge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares one-shot challenge state across instances. Values are
// encoded as "<expiry-unix-ms>:<value>" so Take can report the original
// expiry; Redis key TTLs provide the expiration backstop.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "votegate:bio"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) challengeKey(userID string) string {
	return s.prefix + ":chal:" + userID
}

func (s *RedisStore) verifiedKey(userID string) string {
	return s.prefix + ":ok:" + userID
}

func (s *RedisStore) put(ctx context.Context, key, value string, expiresAt time.Time) error {
	encoded := strconv.FormatInt(expiresAt.UnixMilli(), 10) + ":" + value
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	if err := s.client.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("challenge: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) take(ctx context.Context, key string) (string, time.Time, error) {
	encoded, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", time.Time{}, ErrNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("challenge: redis getdel: %w", err)
	}

	ms, value, ok := strings.Cut(encoded, ":")
	if !ok {
		return "", time.Time{}, ErrNotFound
	}
	unixMS, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return "", time.Time{}, ErrNotFound
	}
	return value, time.UnixMilli(unixMS), nil
}

func (s *RedisStore) PutChallenge(ctx context.Context, userID, value string, expiresAt time.Time) error {
	return s.put(ctx, s.challengeKey(userID), value, expiresAt)
}

func (s *RedisStore) TakeChallenge(ctx context.Context, userID string) (string, time.Time, error) {
	return s.take(ctx, s.challengeKey(userID))
}

func (s *RedisStore) PutVerified(ctx context.Context, userID string, expiresAt time.Time) error {
	return s.put(ctx, s.verifiedKey(userID), "1", expiresAt)
}

func (s *RedisStore) TakeVerified(ctx context.Context, userID string) (time.Time, error) {
	_, expiresAt, err := s.take(ctx, s.verifiedKey(userID))
	return expiresAt, err
}

// Sweep is a no-op: Redis expires entries via key TTLs.
func (s *RedisStore) Sweep(ctx context.Context) error { return nil }
