package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"loan-tracker/internal/domain/loan"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, *RedisLocker) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return s, NewRedisLocker(rdb, 5*time.Second)
}

func TestWithLock_RunsAndReleases(t *testing.T) {
	s, l := newLocker(t)
	ctx := context.Background()

	ran := false
	err := l.WithLock(ctx, "L1", func(ctx context.Context) error {
		ran = true
		if !s.Exists(keyPrefix + "L1") {
			t.Fatalf("lock key not held during fn")
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
	if s.Exists(keyPrefix + "L1") {
		t.Fatalf("lock not released")
	}
}

func TestWithLock_HeldLockIsConflict(t *testing.T) {
	_, l := newLocker(t)
	ctx := context.Background()

	err := l.WithLock(ctx, "L1", func(ctx context.Context) error {
		inner := l.WithLock(ctx, "L1", func(context.Context) error {
			t.Fatalf("inner fn must not run")
			return nil
		})
		if !errors.Is(inner, loan.ErrConflict) {
			t.Fatalf("inner err = %v, want ErrConflict", inner)
		}
		// a different loan is independent
		return l.WithLock(ctx, "L2", func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatalf("outer: %v", err)
	}
}

func TestWithLock_PropagatesFnError(t *testing.T) {
	s, l := newLocker(t)
	boom := errors.New("boom")
	if err := l.WithLock(context.Background(), "L1", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s.Exists(keyPrefix + "L1") {
		t.Fatalf("lock not released after error")
	}
}

func TestNoopLocker(t *testing.T) {
	called := false
	_ = NoopLocker{}.WithLock(context.Background(), "L1", func(context.Context) error { called = true; return nil })
	if !called {
		t.Fatal("fn not called")
	}
}
