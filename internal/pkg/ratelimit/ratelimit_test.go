package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const isolatedRateLimitTestRedisDB = 13

// resolveTestRedis returns a client on an isolated DB, skipping the test
// when no Redis server is reachable.
func resolveTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := fmt.Sprintf("%s:%s",
		env.GetEnv("CACHE_HOST", "localhost"),
		env.GetEnv("CACHE_PORT", "6379"))

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       isolatedRateLimitTestRedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("no redis server reachable at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestAllow_DeniesAboveLimit(t *testing.T) {
	client := resolveTestRedis(t)
	limiter := NewLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "10.0.0.1") {
			t.Fatalf("request %d should have been admitted", i+1)
		}
	}
	if limiter.Allow(ctx, "10.0.0.1") {
		t.Fatalf("request above the limit should have been denied")
	}
}

func TestAllow_SourcesAreIndependent(t *testing.T) {
	client := resolveTestRedis(t)
	limiter := NewLimiter(client, 1, time.Minute)
	ctx := context.Background()

	if !limiter.Allow(ctx, "10.0.0.1") {
		t.Fatalf("first source should be admitted")
	}
	if !limiter.Allow(ctx, "10.0.0.2") {
		t.Fatalf("second source has its own counter")
	}
	if limiter.Allow(ctx, "10.0.0.1") {
		t.Fatalf("first source is at its limit")
	}
}

func TestAllow_WindowResets(t *testing.T) {
	client := resolveTestRedis(t)
	limiter := NewLimiter(client, 1, time.Second)
	ctx := context.Background()

	if !limiter.Allow(ctx, "10.0.0.3") {
		t.Fatalf("first request should be admitted")
	}
	if limiter.Allow(ctx, "10.0.0.3") {
		t.Fatalf("second request inside the window should be denied")
	}

	time.Sleep(1100 * time.Millisecond)

	if !limiter.Allow(ctx, "10.0.0.3") {
		t.Fatalf("request after the window lapsed should be admitted")
	}
}

func TestAllow_ConcurrentRequestsNeverOvershoot(t *testing.T) {
	client := resolveTestRedis(t)

	const max = 10
	const attempts = 50
	limiter := NewLimiter(client, max, time.Minute)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(context.Background(), "10.0.0.9") {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&admitted); got != max {
		t.Fatalf("expected exactly %d admissions, got %d", max, got)
	}
}
