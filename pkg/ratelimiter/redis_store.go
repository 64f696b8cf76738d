package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares counters between instances. Each window is a key that
// is created with the window's TTL and then incremented, all in one
// MULTI/EXEC transaction.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore keeps counters in Redis under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Increment(ctx context.Context, key string, length time.Duration) (int, time.Time, error) {
	k := s.prefix + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, length)
		incr = pipe.Incr(ctx, k)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = length
	}
	return int(incr.Val()), time.Now().Add(ttl), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
