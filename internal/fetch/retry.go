// Package fetch downloads attachments over plain HTTP, reusing the
// browser session's cookies.
package fetch

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy decides whether a failed attempt is repeated and how long
// to wait before the next one.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// FixedRetryPolicy retries every failure a fixed number of times with a
// constant pause between attempts. Cancellation is never retried.
type FixedRetryPolicy struct {
	maxAttempts int
	backoff     time.Duration
}

// NewFixedRetryPolicy builds a policy. Attempts below one collapse to
// one; a negative backoff collapses to zero.
func NewFixedRetryPolicy(maxAttempts int, backoff time.Duration) *FixedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	return &FixedRetryPolicy{maxAttempts: maxAttempts, backoff: backoff}
}

// ShouldRetry reports whether another attempt is allowed. attempt is
// 1-based: the attempt that just failed.
func (p *FixedRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Backoff returns the constant inter-attempt pause.
func (p *FixedRetryPolicy) Backoff(int) time.Duration {
	return p.backoff
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
