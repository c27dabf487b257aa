package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Operation is a unit of work retried until it succeeds or attempts run out.
type Operation func(ctx context.Context) error

// Policy describes backoff behaviour between attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

// Result reports how the retry loop ended.
type Result struct {
	Attempts int
	Err      error
}

// Succeeded reports whether the operation eventually completed.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// sleeper is injectable so tests can observe delays without waiting.
type sleeper func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op with exponential backoff: the delay doubles after each failed
// attempt, capped at MaxDelay, with optional proportional jitter.
func Do(ctx context.Context, op Operation, policy Policy) Result {
	return doWithSleep(ctx, op, policy, defaultSleep)
}

func doWithSleep(ctx context.Context, op Operation, policy Policy, sleep sleeper) Result {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempt - 1, Err: err}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return Result{Attempts: attempt}
		}

		if attempt == policy.MaxAttempts {
			break
		}

		wait := delay
		if policy.Jitter > 0 {
			spread := float64(wait) * policy.Jitter
			wait += time.Duration(rand.Float64()*2*spread - spread)
			if wait < 0 {
				wait = 0
			}
		}
		if err := sleep(ctx, wait); err != nil {
			return Result{Attempts: attempt, Err: err}
		}

		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return Result{
		Attempts: policy.MaxAttempts,
		Err:      fmt.Errorf("all %d attempts failed: %w", policy.MaxAttempts, lastErr),
	}
}
