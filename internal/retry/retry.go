// Package retry wraps cenkalti/backoff behind the one policy shape the rest
// of the code needs: a bounded number of attempts with exponential delays.
// Retrying is confined to transient relay fetches; nothing here retries full
// authentication attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a reusable retry policy. Zero values fall back to three attempts
// starting at 500ms.
type Policy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
}

// Do runs op until it succeeds, returns a permanent error, the attempts are
// exhausted, or ctx is done.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 3
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay

	return backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(b, ctx), attempts-1))
}

// Permanent marks err as non-retryable so Do stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
