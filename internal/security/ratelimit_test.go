package security

import (
	"errors"
	"testing"
	"time"
)

func newTestLimiter(cfg RateLimitConfig, clock *time.Time) *RateLimiter {
	rl := NewRateLimiter(cfg)
	rl.now = func() time.Time { return *clock }
	return rl
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	if rl != nil {
		t.Fatal("expected nil limiter when disabled")
	}
	for range 100 {
		if err := rl.Allow("client"); err != nil {
			t.Fatalf("nil limiter should allow: %v", err)
		}
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(RateLimitConfig{RequestsPerMin: 2}, &clock)

	if err := rl.Allow("a"); err != nil {
		t.Fatalf("first: %v", err)
	}
	clock = clock.Add(10 * time.Second)
	if err := rl.Allow("a"); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := rl.Allow("a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third: got %v, want ErrRateLimited", err)
	}

	// Other clients have their own budget.
	if err := rl.Allow("b"); err != nil {
		t.Fatalf("client b: %v", err)
	}

	// First event leaves the window.
	clock = clock.Add(51 * time.Second)
	if err := rl.Allow("a"); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestRateLimiter_MaxClients(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(RateLimitConfig{RequestsPerMin: 5, MaxClients: 2}, &clock)

	_ = rl.Allow("a")
	_ = rl.Allow("b")
	clock = clock.Add(2 * time.Minute)
	_ = rl.Allow("c")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.clients) != 1 {
		t.Errorf("tracked clients = %d, want 1 after idle sweep", len(rl.clients))
	}
	if _, ok := rl.clients["c"]; !ok {
		t.Error("expected client c to be tracked")
	}
}
