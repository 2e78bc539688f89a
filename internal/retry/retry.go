// Package retry provides the single retry/backoff policy applied at every
// external-call boundary, instead of scattering backoff loops per call site.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded exponential backoff: MaxAttempts tries with
// delays BaseDelay, 2*BaseDelay, 4*BaseDelay, ... capped at MaxDelay.
// Retryable decides which errors are worth another attempt; a nil predicate
// retries everything.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// Default returns the policy used by the pipeline unless configured otherwise.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs op until it succeeds, the attempt budget is spent, an unretryable
// error occurs, or ctx is done. Returns the last error.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if waitErr := sleep(ctx, delay); waitErr != nil {
			return err
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
