package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	rl := NewDistributedRateLimiter(setupRedis(t), &RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
	}, "test")

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "key")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("Request %d should be allowed", i)
		}
	}

	allowed, err := rl.Allow(ctx, "key")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Error("Request over the limit should be denied")
	}

	remaining, err := rl.Remaining(ctx, "key")
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("Remaining = %d, want 0", remaining)
	}
}

func TestDistributedRateLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	rl := NewDistributedRateLimiter(setupRedis(t), &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")

	if allowed, _ := rl.Allow(ctx, "key"); !allowed {
		t.Fatal("First request should be allowed")
	}
	if allowed, _ := rl.Allow(ctx, "key"); allowed {
		t.Fatal("Second request should be denied")
	}

	if err := rl.Reset(ctx, "key"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if allowed, _ := rl.Allow(ctx, "key"); !allowed {
		t.Error("Request after reset should be allowed")
	}
}

func TestDistributedRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	rl := NewDistributedRateLimiter(client, nil, "test")
	allowed, err := rl.Allow(context.Background(), "key")
	if err == nil {
		t.Fatal("Expected error from unreachable Redis")
	}
	if !allowed {
		t.Error("Limiter must fail open when Redis is unreachable")
	}
}

func TestDistributedRateLimitMiddleware(t *testing.T) {
	client := setupRedis(t)
	m := &DistributedRateLimitMiddleware{
		userLimiter: NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute}, "ratelimit:user"),
		anonLimiter: NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}, "ratelimit:anon"),
	}
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("First request: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Second request: status = %d, want 429", w.Code)
	}
}
