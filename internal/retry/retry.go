// Package retry wraps fallible operations with jittered exponential backoff.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
)

// Permanent marks an error as not worth retrying. Wrap auth and not-found
// class failures in Permanent so Do surfaces them immediately.
type Permanent struct {
	Err error
}

// Error implements the error interface.
func (p *Permanent) Error() string { return p.Err.Error() }

// Unwrap exposes the wrapped error to errors.Is/As.
func (p *Permanent) Unwrap() error { return p.Err }

// MarkPermanent wraps err so the retry loop will not attempt it again.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// Policy controls attempt count and backoff shape. The zero value is not
// usable; construct with NewPolicy.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option customizes a Policy.
type Option func(*Policy)

// WithSleeper replaces the backoff sleep, letting tests skip real delays.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) { p.sleep = sleep }
}

// NewPolicy builds a retry policy. maxAttempts counts the first try, so
// maxAttempts=3 means the original call plus two retries.
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration, opts ...Option) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	p := &Policy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Do invokes fn until it succeeds, the attempts are exhausted, the error is
// permanent, or ctx finishes. The returned error is the last attempt's.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
				return fmt.Errorf("retry wait: %w", err)
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.shouldRetry(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (p *Policy) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *Permanent
	return !errors.As(err, &perm)
}

// backoff computes a full-jitter delay for the given attempt (1-based for
// the first retry): a uniform draw from [0, min(base*2^(attempt-1), max)].
func (p *Policy) backoff(attempt int) time.Duration {
	ceiling := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if ceiling > float64(p.maxDelay) {
		ceiling = float64(p.maxDelay)
	}
	return randomBelow(time.Duration(ceiling))
}

func randomBelow(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
