package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// LogFunc is called after every failed attempt that will be retried
type LogFunc func(attempt int, err error, nextDelay time.Duration)

// DefaultConfig returns a default retry configuration with 1 minute max timeout
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second,
	}
}

// Do executes fn with exponential backoff
func Do(ctx context.Context, cfg Config, fn func() error) error {
	return DoWithLog(ctx, cfg, "", fn, nil)
}

// DoWithLog executes fn with exponential backoff, reporting each failed attempt to logFn.
// serviceName prefixes returned errors when set.
func DoWithLog(ctx context.Context, cfg Config, serviceName string, fn func() error, logFn LogFunc) error {
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	wrap := func(format string, args ...any) error {
		err := fmt.Errorf(format, args...)
		if serviceName == "" {
			return err
		}
		return fmt.Errorf("%s: %w", serviceName, err)
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return wrap("retry aborted after %d attempts: %w (last error: %v)", attempt-1, err, lastErr)
			}
			return wrap("retry aborted: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if logFn != nil {
			logFn(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return wrap("retry aborted after %d attempts: %w (last error: %v)", attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return wrap("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}
