package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy retries an operation with capped exponential backoff. The delay
// before attempt n+1 is min(MaxDelay, BaseDelay * 2^n). Errors for which
// IsRetryable returns false abort immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	IsRetryable func(error) bool

	// sleep is swapped out in tests to record delays instead of waiting.
	sleep func(context.Context, time.Duration) error
}

func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration, isRetryable func(error) bool) *Policy {
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		IsRetryable: isRetryable,
		sleep:       sleepCtx,
	}
}

// WithSleeper returns a copy of the policy using fn for backoff waits.
func (p *Policy) WithSleeper(fn func(context.Context, time.Duration) error) *Policy {
	clone := *p
	clone.sleep = fn
	return &clone
}

// Do runs op up to MaxAttempts times. The returned error is the last error
// wrapped with the attempt count when the budget is exhausted.
func (p *Policy) Do(ctx context.Context, name string, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if p.IsRetryable != nil && !p.IsRetryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := p.Delay(attempt)
		log.Warn().Err(err).
			Str("operation", name).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Dur("delay", delay).
			Msg("Retrying after transient error")
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxAttempts, lastErr)
}

// Delay returns the backoff before the attempt following zero-based attempt n.
func (p *Policy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
