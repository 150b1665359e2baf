package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

const pendingValue = "\x00pending"

// releaseScript deletes the key only while it is still pending, so a late
// release never drops a completed result.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore is a Store shared by every service instance. Redis failures
// are reported as domain.ErrUnavailable.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. Keys are namespaced with prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.NewUnavailableError(fmt.Errorf("idempotency lookup: %w", err))
	}
	if val == pendingValue {
		return "", false, nil
	}
	return val, true, nil
}

func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, s.key(key), pendingValue, ttl).Result()
	if err != nil {
		return domain.NewUnavailableError(fmt.Errorf("idempotency acquire: %w", err))
	}
	if !ok {
		return ErrInFlight
	}
	return nil
}

func (s *RedisStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), result, ttl).Err(); err != nil {
		return domain.NewUnavailableError(fmt.Errorf("idempotency complete: %w", err))
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(key)}, pendingValue).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return domain.NewUnavailableError(fmt.Errorf("idempotency release: %w", err))
	}
	return nil
}
