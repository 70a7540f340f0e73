package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a client exceeds its request budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	// RequestsPerMin is the number of requests a single client may make in
	// any sliding one-minute window. Zero disables limiting.
	RequestsPerMin int `yaml:"requests_per_min"`

	// MaxClients bounds the number of tracked clients. Idle clients are
	// evicted first when the bound is reached.
	MaxClients int `yaml:"max_clients"`
}

const defaultMaxClients = 10000

// RateLimiter implements sliding window rate limiting keyed by client.
// Each window tracks the timestamps of recent events.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	max     int
	window  time.Duration
	clients map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
// It returns nil when limiting is disabled; a nil limiter allows everything.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerMin <= 0 {
		return nil
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = defaultMaxClients
	}
	return &RateLimiter{
		limit:   cfg.RequestsPerMin,
		max:     cfg.MaxClients,
		window:  time.Minute,
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one event for key. It returns ErrRateLimited when key has
// already used its budget within the window.
func (rl *RateLimiter) Allow(key string) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	events := evict(rl.clients[key], now.Add(-rl.window))

	if len(events) >= rl.limit {
		rl.clients[key] = events
		return ErrRateLimited
	}

	if _, tracked := rl.clients[key]; !tracked && len(rl.clients) >= rl.max {
		rl.sweep(now)
	}
	rl.clients[key] = append(events, now)
	return nil
}

// sweep drops clients with no events in the window. If every client is
// still active, it drops all of them rather than grow without bound.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.window)
	for k, events := range rl.clients {
		if len(evict(events, cutoff)) == 0 {
			delete(rl.clients, k)
		}
	}
	if len(rl.clients) >= rl.max {
		clear(rl.clients)
	}
}

// evict removes events before cutoff. Events are chronologically ordered.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}
