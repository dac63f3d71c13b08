// Package retryx is the single retry policy used across the project.
// Call sites parameterize attempts, base delay and jitter instead of
// growing their own counters.
package retryx

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// BaseDelay is the delay before the first retry; it doubles each attempt.
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt delay. Zero means uncapped.
	MaxDelay time.Duration
	// Jitter adds up to +/-10% noise to each delay when set.
	Jitter bool
}

// DefaultPolicy suits short remote reads: 2 retries, 100ms base, 1s cap.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 2, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: true}
}

func (p Policy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	if p.Jitter {
		b = retry.WithJitterPercent(10, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// Do runs fn under the policy. Every error is retried except context
// cancellation and errors wrapped with Permanent.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		return retry.RetryableError(err)
	})
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the original error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
