package jwt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records session token ids that must no longer be accepted.
// Entries only need to live until the token's own expiry.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationList keeps revoked ids in process memory.
// Suitable for single instance deployments and tests.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// RevocationOption configures a revocation list.
type RevocationOption func(*revocationOptions)

type revocationOptions struct {
	now func() time.Time
}

// WithRevocationClock sets the time source used to decide whether an entry
// is still live. It should match the clock of the Codec issuing the tokens.
func WithRevocationClock(now func() time.Time) RevocationOption {
	return func(o *revocationOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func newRevocationOptions(opts []RevocationOption) revocationOptions {
	o := revocationOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewMemoryRevocationList creates an empty in-memory list.
func NewMemoryRevocationList(opts ...RevocationOption) *MemoryRevocationList {
	o := newRevocationOptions(opts)
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     o.now,
	}
}

// Revoke records tokenID until the given time. Entries already past are
// ignored.
func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return ErrTokenInvalid
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !until.After(now) {
		return nil
	}
	l.entries[tokenID] = until

	// prune expired entries
	for id, exp := range l.entries {
		if !exp.After(now) {
			delete(l.entries, id)
		}
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (l *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(l.now()) {
		delete(l.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// DefaultRevocationPrefix namespaces revocation keys in Redis.
const DefaultRevocationPrefix = "session:revoked:"

// RedisRevocationList stores revoked ids as expiring Redis keys, which makes
// logout visible to every instance sharing the Redis server.
type RedisRevocationList struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRevocationList creates a Redis backed list using DefaultRevocationPrefix.
func NewRedisRevocationList(client redis.UniversalClient, opts ...RevocationOption) *RedisRevocationList {
	o := newRevocationOptions(opts)
	return &RedisRevocationList{
		client: client,
		prefix: DefaultRevocationPrefix,
		now:    o.now,
	}
}

// Revoke stores tokenID with a TTL ending at until.
func (l *RedisRevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return ErrTokenInvalid
	}
	ttl := until.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, l.prefix+tokenID, 1, ttl).Err(); err != nil {
		return errors.Join(ErrRevocationUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether a key for tokenID exists.
func (l *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+tokenID).Result()
	if err != nil {
		return false, errors.Join(ErrRevocationUnavailable, err)
	}
	return n > 0, nil
}
