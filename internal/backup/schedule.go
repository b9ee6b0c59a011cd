package backup

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig controls backoff between failed attempts of one scheduled run.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 5 * time.Second, MaxDelay: time.Minute}
}

// Scheduler runs a backup every interval. The first run happens one full
// interval after start, not immediately.
type Scheduler struct {
	interval time.Duration
	retry    RetryConfig
	run      func(ctx context.Context) (Result, error)
}

func NewScheduler(interval time.Duration, retry RetryConfig, run func(ctx context.Context) (Result, error)) *Scheduler {
	return &Scheduler{interval: interval, retry: retry, run: run}
}

// Run blocks until ctx is done. Failed runs are logged and retried; they
// never stop the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("backup schedule started", "interval", s.interval)
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res, attempts, err := withRetry(ctx, s.retry, s.run)
	if err != nil {
		slog.Error("scheduled backup failed", "attempts", attempts, "error", err)
		return
	}
	slog.Info("scheduled backup done", "objects", len(res.Keys), "attempts", attempts)
}

// withRetry runs fn until it succeeds, retries run out, or ctx ends.
func withRetry(ctx context.Context, cfg RetryConfig, fn func(context.Context) (Result, error)) (res Result, attempts int, err error) {
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		res, err = fn(ctx)
		if err == nil {
			return res, attempt + 1, nil
		}
		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return res, attempt + 1, ctx.Err()
		case <-time.After(backoff(cfg.BaseDelay, cfg.MaxDelay, attempt)):
		}
	}
	return res, cfg.MaxRetries + 1, err
}

// backoff is min(base*2^attempt, max) with ±25% jitter.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	if d > max || d <= 0 {
		d = max
	}
	if q := d / 4; q > 0 {
		d += time.Duration(rand.Int64N(int64(q*2))) - q
	}
	return d
}
