package twitter

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
)

// RetryConfig controls backoff for retryable API errors.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64 // 0.4 gives a multiplier range of [0.8, 1.2]
}

// DefaultRetryConfig returns the retry settings used when none are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.4,
	}
}

// retry runs fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx is cancelled. fn always runs at least once.
func retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	maxRetries := max(cfg.MaxRetries, 0)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return result, errors.Wrapf(lastErr, "context cancelled after %d attempts", attempt)
			}
			return result, errors.Wrap(err, "context cancelled before request")
		}

		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(lastErr) {
			return result, lastErr
		}
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return result, errors.Wrapf(lastErr, "context cancelled during backoff (attempt %d/%d)", attempt+1, maxRetries)
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return result, errors.Wrapf(lastErr, "failed after %d retries", maxRetries)
}

// backoff is min(base * 2^attempt, max) scaled by a random jitter factor.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d * (1 - cfg.Jitter/2 + cfg.Jitter*rand.Float64()))
}
