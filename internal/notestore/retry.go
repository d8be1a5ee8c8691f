package notestore

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds transport retries: exponential backoff between
// attempts, capped attempt count. Zero value = single attempt.
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy matches the note store's observed flakiness: a few
// quick retries, nothing long-running.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

// Permanent marks an error as non-retryable (4xx responses, bad requests).
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op under the policy.
func (p RetryPolicy) Do(op func() error) error {
	if p.MaxAttempts <= 1 {
		return op()
	}
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return backoff.Retry(op, backoff.WithMaxRetries(b, p.MaxAttempts-1))
}
