// Package idempotency provides a Redis-backed store for deduplicating
// checkout requests: clients send an X-Idempotency-Key header, and a retry
// with the same key gets the remembered response instead of a second charge.
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the port the HTTP layer depends on.
type Store interface {
	// TryLock claims key within scope. It reports false when another
	// request already holds (or held) the key.
	TryLock(ctx context.Context, scope, key string) (bool, error)

	// Remember stores the serialised response for key.
	Remember(ctx context.Context, scope, key, value string) error

	// Recall returns the remembered response for key, if any.
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// RedisStore implements Store on a Redis client. Keys expire after ttl so
// the keyspace does not grow without bound.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "idemp:"+scope+":"+key, "1", s.ttl).Result()
}

func (s *RedisStore) Remember(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, "idemp:map:"+scope+":"+key, value, s.ttl).Err()
}

func (s *RedisStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, "idemp:map:"+scope+":"+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	return val, true, err
}
