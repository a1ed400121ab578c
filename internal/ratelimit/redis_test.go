package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLimiter(t *testing.T) *RedisLimiter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisLimiter(rdb, Config{DefaultRPS: 1, DefaultBurst: 3})
}

func TestRedisLimiterAllowsUpToBurst(t *testing.T) {
	l := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "tenant-a")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !ok {
			t.Fatalf("expected request %d to be allowed within burst", i)
		}
	}

	ok, err := l.Allow(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatal("expected 4th request to be rejected")
	}
}

func TestRedisLimiterIsolatesTenants(t *testing.T) {
	l := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "tenant-a"); !ok {
			t.Fatalf("tenant-a request %d unexpectedly denied", i)
		}
	}
	ok, err := l.Allow(ctx, "tenant-b")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !ok {
		t.Fatal("expected tenant-b to have an independent bucket")
	}
}
