package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(delays *[]time.Duration) Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	r := New(3, time.Second).WithSleeper(noSleep(&delays))

	calls := 0
	err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDo_RecoversAfterFailures(t *testing.T) {
	var delays []time.Duration
	r := New(3, time.Second).WithSleeper(noSleep(&delays))

	calls := 0
	err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Exponential backoff: 1s then 2s
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	r := New(3, time.Second).WithSleeper(noSleep(&delays))

	lastErr := errors.New("still down")
	calls := 0
	err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		return lastErr
	})

	assert.Equal(t, lastErr, err)
	assert.Equal(t, 3, calls)
	// No sleep after the final attempt
	assert.Len(t, delays, 2)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	r := New(5, time.Second).WithSleeper(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	boom := errors.New("boom")
	calls := 0
	err := r.Do(ctx, func(_ context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}
