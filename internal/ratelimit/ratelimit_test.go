package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNoOpRateLimiter(t *testing.T) {
	var limiter NoOpRateLimiter
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "any-key")
		if err != nil {
			t.Errorf("Allow() error = %v", err)
		}
		if !allowed {
			t.Error("Allow() = false, want true")
		}
	}

	if err := limiter.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	if _, err := NewRedisRateLimiter("not-a-url", 10, time.Minute); err == nil {
		t.Fatal("NewRedisRateLimiter() error = nil, want invalid URL error")
	}
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 3, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	defer limiter.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "push")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("Allow() call %d = false, want true", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "push")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("Allow() over limit = true, want false")
	}

	// A different key has its own window.
	allowed, err = limiter.Allow(ctx, "other")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Allow() for separate key = false, want true")
	}
}
