package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments the window counter and attaches the TTL
// atomically, so two instances racing on the first request of a window
// cannot leave an unexpiring key behind.
var incrScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`)

// RedisStore shares fixed windows across service instances.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "votegate:rl"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	raw, err := incrScript.Run(ctx, s.client,
		[]string{s.prefix + ":" + key},
		window.Milliseconds(),
	).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: redis incr: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, time.Time{}, fmt.Errorf("ratelimit: unexpected redis response %T", raw)
	}
	count, ok1 := values[0].(int64)
	ttlMS, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return 0, time.Time{}, fmt.Errorf("ratelimit: unexpected redis response values")
	}
	if ttlMS < 0 {
		ttlMS = window.Milliseconds()
	}

	return int(count), time.Now().Add(time.Duration(ttlMS) * time.Millisecond), nil
}

// Sweep is a no-op: Redis expires windows via key TTLs.
func (s *RedisStore) Sweep(ctx context.Context) error { return nil }
