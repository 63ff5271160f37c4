package capacity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tripstock/internal/shared/errs"
)

func TestRetryPolicy_RetriesOnlyConflicts(t *testing.T) {
	policy := RetryPolicy{Attempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Run(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return ErrVersionConflict
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	boom := errs.CapacityExceededf("sold out")
	err = policy.Run(context.Background(), func(int) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, errs.ErrCapacityExceeded)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ExhaustedIsTransient(t *testing.T) {
	policy := RetryPolicy{Attempts: 4, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Run(context.Background(), func(int) error {
		calls++
		return ErrVersionConflict
	})

	assert.ErrorIs(t, err, errs.ErrTransientConflict)
	assert.False(t, errors.Is(err, errs.ErrCapacityExceeded))
	assert.Equal(t, 4, calls)
}

func TestRetryPolicy_Deadline(t *testing.T) {
	policy := RetryPolicy{Attempts: 1000, BaseDelay: 5 * time.Millisecond, Deadline: 20 * time.Millisecond}

	start := time.Now()
	err := policy.Run(context.Background(), func(int) error {
		return ErrVersionConflict
	})

	assert.ErrorIs(t, err, errs.ErrTransientConflict)
	assert.Less(t, time.Since(start), time.Second)
}
