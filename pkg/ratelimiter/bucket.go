package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Store keeps bucket state. ConsumeTokens takes n tokens when available and
// reports the tokens left afterwards; a denied request leaves the bucket as is
// and reports -1.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, n int, cfg Config, now time.Time) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Result of a rate limit check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// Bucket is a token bucket limiter keyed by caller.
type Bucket struct {
	store Store
	cfg   Config
	now   func() time.Time
}

type Option func(*Bucket)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Bucket) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBucket(store Store, cfg Config, opts ...Option) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &Bucket{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bucket) Allow(ctx context.Context, key string) (Result, error) {
	return b.AllowN(ctx, key, 1)
}

func (b *Bucket) AllowN(ctx context.Context, key string, n int) (Result, error) {
	if n <= 0 {
		return Result{}, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	now := b.now()
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.cfg, now)
	if err != nil {
		return Result{}, err
	}
	return Result{Limit: b.cfg.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

// RetryAfter is how long a denied caller should wait, at least one second.
func (b *Bucket) RetryAfter(res Result) time.Duration {
	if res.Allowed() {
		return 0
	}
	return max(res.ResetAt.Sub(b.now()), time.Second)
}

func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
