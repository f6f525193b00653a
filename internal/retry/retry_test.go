package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/menumate/internal/config"
)

var errHidden = errors.New("row hidden")

func TestPolicyStopsAfterAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Policy{Attempts: 3, Spacing: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errHidden)
	})

	assert.ErrorIs(t, err, errHidden)
	assert.Equal(t, 3, calls)
}

func TestPolicyReturnsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Policy{Attempts: 5, Spacing: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return Retryable(errHidden)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicyNonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Policy{Attempts: 5, Spacing: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return errHidden
	})

	assert.ErrorIs(t, err, errHidden)
	assert.Equal(t, 1, calls)
}

func TestPolicyTimeoutBoundsTotalTime(t *testing.T) {
	t.Parallel()

	policy := Policy{Attempts: 100, Spacing: 20 * time.Millisecond, Timeout: 60 * time.Millisecond}
	start := time.Now()
	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errHidden)
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Less(t, calls, 100)
}

func TestPolicyZeroValueRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	_ = Policy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errHidden)
	})
	assert.Equal(t, 1, calls)
}

func TestPolicyExponential(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Policy{Attempts: 3, Spacing: time.Millisecond, Backoff: "exponential"}.Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errHidden)
	})
	assert.ErrorIs(t, err, errHidden)
	assert.Equal(t, 3, calls)
}

func TestRetryableNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Retryable(nil))
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	p := FromConfig(config.RetryPolicy{Attempts: 3, Spacing: time.Second, Backoff: "exponential", Timeout: time.Minute})
	assert.Equal(t, Policy{Attempts: 3, Spacing: time.Second, Backoff: "exponential", Timeout: time.Minute}, p)
}
