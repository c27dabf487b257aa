package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result := doWithSleep(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, Policy{MaxAttempts: 3, BaseDelay: time.Second}, noSleep(t))

	require.True(t, result.Succeeded())
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestDoSucceedsOnThirdAttemptWithIncreasingDelays(t *testing.T) {
	calls := 0
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	result := doWithSleep(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}, sleep)

	require.True(t, result.Succeeded())
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
	require.Len(t, delays, 2)
	assert.Equal(t, time.Second, delays[0])
	assert.Equal(t, 2*time.Second, delays[1])
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	result := doWithSleep(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	}, Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context, d time.Duration) error { return nil })

	require.False(t, result.Succeeded())
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, result.Err, boom)
}

func TestDoDelayCappedAtMax(t *testing.T) {
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	result := doWithSleep(context.Background(), func(ctx context.Context) error {
		return errors.New("always")
	}, Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 2 * time.Second}, sleep)

	require.False(t, result.Succeeded())
	require.Len(t, delays, 4)
	assert.Equal(t, time.Second, delays[0])
	assert.Equal(t, 2*time.Second, delays[1])
	assert.Equal(t, 2*time.Second, delays[2])
	assert.Equal(t, 2*time.Second, delays[3])
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := doWithSleep(ctx, func(ctx context.Context) error {
		t.Fatal("operation must not run after cancellation")
		return nil
	}, Policy{MaxAttempts: 3, BaseDelay: time.Second}, noSleep(t))

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 0, result.Attempts)
}

func TestDoJitterStaysNonNegative(t *testing.T) {
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	doWithSleep(context.Background(), func(ctx context.Context) error {
		return errors.New("always")
	}, Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, Jitter: 1.0}, sleep)

	for _, d := range delays {
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func noSleep(t *testing.T) sleeper {
	return func(ctx context.Context, d time.Duration) error {
		t.Helper()
		t.Fatalf("unexpected sleep of %s", d)
		return nil
	}
}
