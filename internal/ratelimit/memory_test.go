package ratelimit

import (
	"context"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		DefaultRPS:   1,
		DefaultBurst: 3,
		PerKey: map[string]KeyConfig{
			"tenant-vip": {RPS: 10, Burst: 20},
		},
	}
}

func TestMemoryLimiterAllowsUpToBurst(t *testing.T) {
	l := NewMemoryLimiter(testConfig())
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
		t.Fatal("expected 4th request to be rejected, burst exhausted")
	}
}

func TestMemoryLimiterRefillsOverTime(t *testing.T) {
	l := NewMemoryLimiter(testConfig())
	fixed := time.Now()
	l.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "tenant-a"); !ok {
			t.Fatalf("expected initial burst request %d to succeed", i)
		}
	}
	if ok, _ := l.Allow(ctx, "tenant-a"); ok {
		t.Fatal("expected bucket to be empty")
	}

	fixed = fixed.Add(2 * time.Second)
	l.now = func() time.Time { return fixed }

	ok, err := l.Allow(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !ok {
		t.Fatal("expected refill after 2s at 1rps to allow a request")
	}
}

func TestMemoryLimiterIsolatesTenants(t *testing.T) {
	l := NewMemoryLimiter(testConfig())
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
		t.Fatal("expected tenant-b to have its own untouched bucket")
	}
}

func TestMemoryLimiterHonorsPerKeyOverride(t *testing.T) {
	l := NewMemoryLimiter(testConfig())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if ok, _ := l.Allow(ctx, "tenant-vip"); !ok {
			t.Fatalf("tenant-vip request %d unexpectedly denied, expected burst of 20", i)
		}
	}
	if ok, _ := l.Allow(ctx, "tenant-vip"); ok {
		t.Fatal("expected 21st tenant-vip request to be denied")
	}
}
