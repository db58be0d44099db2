package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns the backoff used when connecting to backing services at startup
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second,
	}
}

func (c Config) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialDelay
	if c.MaxDelay > 0 {
		exp.MaxInterval = c.MaxDelay
	}
	if c.BackoffFactor > 0 {
		exp.Multiplier = c.BackoffFactor
	}
	exp.MaxElapsedTime = c.MaxTotalTimeout
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.MaxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, the attempts are exhausted or ctx is done.
// Each failed attempt is logged against the given service name.
func Do(ctx context.Context, cfg Config, service string, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}

	attempts := 0
	var lastErr error
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		lastErr = fn(ctx)
		return lastErr
	}
	notify := func(err error, next time.Duration) {
		log.Warn().
			Err(err).
			Str("service", service).
			Int("attempt", attempts).
			Dur("next_delay", next).
			Msg("connection attempt failed, retrying")
	}

	err := backoff.RetryNotify(operation, cfg.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return aborted(service, attempts, ctxErr, lastErr)
	}
	return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", service, cfg.MaxAttempts, err)
}

func aborted(service string, attempts int, ctxErr, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", service, attempts, ctxErr, lastErr)
	}
	return fmt.Errorf("%s: retry aborted: %w", service, ctxErr)
}
