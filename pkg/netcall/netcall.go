// Package netcall composes the caching, rate limiting and retry layers around
// an outbound call, in that fixed order: a cache hit returns without touching
// the limiter, and only admitted calls are retried.
package netcall

import (
	"context"
	"time"

	"crypto-core/pkg/cache"
	"crypto-core/pkg/ratelimit"
	"crypto-core/pkg/retry"
)

// Caller bundles the three layers. A nil Cache disables caching, a nil
// Limiter disables rate limiting.
type Caller struct {
	Cache   *cache.TTL
	TTL     time.Duration
	Limiter *ratelimit.Limiter
	Retry   retry.Policy
}

// New builds a Caller with the given layers. ttl applies to every cached
// result.
func New(c *cache.TTL, ttl time.Duration, l *ratelimit.Limiter, p retry.Policy) *Caller {
	return &Caller{Cache: c, TTL: ttl, Limiter: l, Retry: p}
}

// Get runs fn through cache, rate limit and retry. key identifies the call
// for caching; build it with cache.Key.
func Get[T any](ctx context.Context, c *Caller, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c.Cache != nil {
		if v, ok := c.Cache.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}
	v, err := retry.DoValue(ctx, c.Retry, fn)
	if err != nil {
		return zero, err
	}
	if c.Cache != nil {
		c.Cache.Set(key, v, c.TTL)
	}
	return v, nil
}

// Do is Get for calls without a result. It is never cached; the limiter and
// retry layers still apply.
func Do(ctx context.Context, c *Caller, fn func(ctx context.Context) error) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return retry.Do(ctx, c.Retry, fn)
}
