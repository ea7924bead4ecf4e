package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 20 * time.Millisecond, BackoffFactor: 2}
	assert.Equal(t, 20*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 40*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 80*time.Millisecond, p.NextDelay(3))
	assert.Equal(t, 20*time.Millisecond, p.NextDelay(0))

	t.Run("Clamped", func(t *testing.T) {
		p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 3 * time.Second, BackoffFactor: 2}
		assert.Equal(t, 3*time.Second, p.NextDelay(5))
	})

	t.Run("Defaults", func(t *testing.T) {
		p := RetryPolicy{}
		assert.Equal(t, time.Second, p.NextDelay(1))
		assert.Equal(t, 2*time.Second, p.NextDelay(2))
	})
}

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()
	p := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}

	t.Run("SucceedsAfterFailures", func(t *testing.T) {
		calls := 0
		var retried []int
		err := p.Do(ctx, func(attempt int) error {
			calls++
			if attempt < 3 {
				return errors.New("busy")
			}
			return nil
		}, func(attempt int, _ error) { retried = append(retried, attempt) })

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retried)
	})

	t.Run("ReturnsLastError", func(t *testing.T) {
		calls := 0
		err := p.Do(ctx, func(attempt int) error {
			calls++
			return errors.New("fail " + string(rune('0'+attempt)))
		}, nil)

		require.Error(t, err)
		assert.Equal(t, "fail 3", err.Error())
		assert.Equal(t, 3, calls)
	})

	t.Run("AtLeastOnce", func(t *testing.T) {
		calls := 0
		_ = RetryPolicy{}.Do(ctx, func(int) error { calls++; return nil }, nil)
		assert.Equal(t, 1, calls)
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		slow := RetryPolicy{MaxRetries: 3, InitialDelay: time.Hour}
		err := slow.Do(cctx, func(int) error { return errors.New("busy") }, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
