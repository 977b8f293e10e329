package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CallerConfig controls pacing, timeout and retry for external calls.
type CallerConfig struct {
	// RatePerSec is the sustained token-bucket rate for calls to the
	// wrapped service. Default: 1 call per second.
	RatePerSec float64

	// Burst is the token-bucket burst size. Default: 1.
	Burst int

	// MaxAttempts is the total number of attempts (including the first
	// try). A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// BaseBackoff is multiplied by the attempt number to produce the
	// delay before each retry. Default: 500ms.
	BaseBackoff time.Duration

	// Timeout is the hard per-call deadline. Default: 30s.
	Timeout time.Duration

	// ShouldRetry optionally overrides the default transient-error
	// check. If nil, IsTransient is used.
	ShouldRetry func(err error) bool
}

func (cfg CallerConfig) withDefaults() CallerConfig {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}

// Caller wraps external lookups with token-bucket pacing, a hard
// per-call timeout, and bounded retry with backoff. One Caller is shared
// across all call sites for a given service so pacing is global.
type Caller struct {
	cfg     CallerConfig
	limiter *rate.Limiter
	service string
}

// NewCaller creates a Caller for the named service.
func NewCaller(service string, cfg CallerConfig) *Caller {
	cfg = cfg.withDefaults()
	return &Caller{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		service: service,
	}
}

// Do executes fn under the caller's pacing, timeout and retry policy.
// Only transient errors are retried; context cancellation stops retries
// immediately. The error from the last attempt is returned.
func Do[T any](ctx context.Context, c *Caller, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	shouldRetry := c.cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		val, err := fn(callCtx)
		cancel()
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= c.cfg.MaxAttempts {
			break
		}

		zap.L().Warn("retrying external call",
			zap.String("service", c.service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)

		delay := time.Duration(attempt) * c.cfg.BaseBackoff
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}
