// Package retry runs an operation with exponential backoff. Failures that
// cannot succeed on a second attempt, such as validation or insufficient
// funds, are returned immediately.
package retry

import (
	"context"
	"time"

	"crypto-core/pkg/errs"
)

// Policy controls retry behaviour. Attempts is the total number of tries,
// Base the delay before the first retry; delay doubles each attempt.
type Policy struct {
	Attempts int
	Base     time.Duration
}

// DefaultPolicy matches the tuning used for exchange REST calls.
var DefaultPolicy = Policy{Attempts: 3, Base: time.Second}

// Do invokes fn up to p.Attempts times, sleeping Base<<attempt between
// failures. The last error is returned if every attempt fails. Non-retryable
// errors abort immediately.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			delay := p.Base << (attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errs.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
