// internal/ratelimit/ratelimit_test.go
package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_FirstCallNeverWaits(t *testing.T) {
	limiter := New(5 * time.Second)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first wait took %v, expected immediate return", elapsed)
	}
}

func TestLimiter_EnforcesSpacing(t *testing.T) {
	interval := 200 * time.Millisecond
	limiter := New(interval)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Allow a small scheduler-jitter tolerance.
	if elapsed := time.Since(start); elapsed < interval-20*time.Millisecond {
		t.Errorf("second wait completed after %v, expected at least %v", elapsed, interval)
	}
}

func TestLimiter_ZeroIntervalDisablesSpacing(t *testing.T) {
	limiter := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("unexpected error on wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("10 waits took %v with zero interval", elapsed)
	}
}

func TestLimiter_CanceledContext(t *testing.T) {
	limiter := New(10 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestLimiter_Interval(t *testing.T) {
	limiter := New(3 * time.Second)
	if limiter.Interval() != 3*time.Second {
		t.Errorf("expected interval 3s, got %v", limiter.Interval())
	}
}
