// Package retry provides a bounded retry policy for backend calls whose
// outcome may only become visible after a short delay.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/Additional-Code/menumate/internal/config"
)

const defaultSpacing = 50 * time.Millisecond

// Policy bounds a retried call by attempt count and total wall-clock time.
type Policy struct {
	Attempts int
	Spacing  time.Duration
	// Backoff is "constant" (default) or "exponential".
	Backoff string
	// Timeout caps the whole sequence, including the waits between attempts.
	Timeout time.Duration
}

// FromConfig converts a configured policy.
func FromConfig(p config.RetryPolicy) Policy {
	return Policy{
		Attempts: p.Attempts,
		Spacing:  p.Spacing,
		Backoff:  p.Backoff,
		Timeout:  p.Timeout,
	}
}

// Retryable marks err as worth another attempt. Errors returned without this
// marker stop the sequence immediately.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return goretry.RetryableError(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// is exhausted. The last retryable error is returned unwrapped; a spent
// timeout surfaces as context.DeadlineExceeded.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return goretry.Do(ctx, p.backoff(), fn)
}

func (p Policy) backoff() goretry.Backoff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	spacing := p.Spacing
	if spacing <= 0 {
		spacing = defaultSpacing
	}

	var b goretry.Backoff
	switch p.Backoff {
	case "exponential":
		b = goretry.NewExponential(spacing)
	default:
		b = goretry.NewConstant(spacing)
	}
	return goretry.WithMaxRetries(uint64(attempts-1), b)
}
