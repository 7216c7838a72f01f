package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"loan-tracker/internal/domain/loan"
)

const keyPrefix = "lock:loan:"

// RedisLocker serialises transitions on one loan across processes.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

// WithLock runs fn while holding the loan's lock. A held lock yields loan.ErrConflict
// immediately; callers re-read and retry.
func (l *RedisLocker) WithLock(ctx context.Context, loanID string, fn func(ctx context.Context) error) error {
	lk, err := l.client.Obtain(ctx, keyPrefix+loanID, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return loan.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("obtain lock for loan %s: %w", loanID, err)
	}
	defer func() { _ = lk.Release(context.Background()) }()
	return fn(ctx)
}

// NoopLocker is used when no Redis is configured; the store's row lock and
// version check still serialise writers.
type NoopLocker struct{}

func (NoopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
