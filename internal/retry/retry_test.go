package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleeper(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoExhaustsBudgetWithCappedBackoff(t *testing.T) {
	var delays []time.Duration
	transient := errors.New("timeout")

	policy := NewPolicy(5, 1*time.Second, 16*time.Second, func(error) bool { return true }).
		WithSleeper(recordingSleeper(&delays))

	attempts := 0
	err := policy.Do(context.Background(), "flaky op", func() error {
		attempts++
		return transient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 5, attempts)
	// min(cap, base * 2^n): 1, 2, 4, 8 — no sleep after the final attempt.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, delays)
}

func TestDoDelaySequenceHitsCap(t *testing.T) {
	policy := NewPolicy(7, 1*time.Second, 16*time.Second, nil)

	expected := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 16 * time.Second, 16 * time.Second,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, policy.Delay(attempt), "attempt %d", attempt)
	}
}

func TestDoStopsOnSuccess(t *testing.T) {
	var delays []time.Duration
	policy := NewPolicy(5, time.Second, 16*time.Second, func(error) bool { return true }).
		WithSleeper(recordingSleeper(&delays))

	attempts := 0
	err := policy.Do(context.Background(), "eventually fine", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, delays, 2)
}

func TestDoFatalErrorAbortsImmediately(t *testing.T) {
	var delays []time.Duration
	fatal := errors.New("parse error")

	policy := NewPolicy(5, time.Second, 16*time.Second, func(err error) bool {
		return !errors.Is(err, fatal)
	}).WithSleeper(recordingSleeper(&delays))

	attempts := 0
	err := policy.Do(context.Background(), "broken op", func() error {
		attempts++
		return fmt.Errorf("wrapped: %w", fatal)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, delays)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := NewPolicy(5, time.Second, 16*time.Second, func(error) bool { return true })

	attempts := 0
	err := policy.Do(ctx, "cancelled op", func() error {
		attempts++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
