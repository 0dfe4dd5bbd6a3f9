package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gderossilive/devShopDemo/internal/usecase"
)

const DefaultLockTTL = 30 * time.Second

// RedisIdempotencyStore keeps one in-flight marker and one remembered
// confirmation per (customer email, idempotency key). The marker expires
// after lockTTL so a crashed request frees its key quickly; the remembered
// result lives for ttl.
type RedisIdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl, lockTTL time.Duration) *RedisIdempotencyStore {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if ttl > 0 && lockTTL > ttl {
		lockTTL = ttl
	}
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func lockKey(scope, key string) string   { return "idemp:purchase:" + scope + ":" + key }
func resultKey(scope, key string) string { return "idemp:map:purchase:" + scope + ":" + key }

func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(scope, key), "1", s.lockTTL).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, lockKey(scope, key)).Err()
}

func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, resultKey(scope, key), value, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, resultKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ usecase.IdempotencyStore = (*RedisIdempotencyStore)(nil)
