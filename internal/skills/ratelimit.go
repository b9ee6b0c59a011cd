package skills

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter for skill executions, keyed by user.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter allows max executions per key per hour.
// Returns nil (no limiting) when max <= 0.
func NewRateLimiter(maxPerHour int) *RateLimiter {
	if maxPerHour <= 0 {
		return nil
	}
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		max:     maxPerHour,
		window:  time.Hour,
		now:     time.Now,
	}
}

// Allow records an execution for key, or returns an error when the window is full.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entries := prune(rl.windows[key], now.Add(-rl.window))
	if len(entries) >= rl.max {
		rl.windows[key] = entries
		return fmt.Errorf("rate limit exceeded: %d skills/hour for %s", rl.max, key)
	}
	rl.windows[key] = append(entries, now)
	return nil
}

// Cleanup drops keys whose entries have all expired.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, entries := range rl.windows {
		if rest := prune(entries, cutoff); len(rest) == 0 {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = rest
		}
	}
}

func prune(entries []time.Time, cutoff time.Time) []time.Time {
	start := 0
	for start < len(entries) && entries[start].Before(cutoff) {
		start++
	}
	return entries[start:]
}
