package capacity

import (
	"context"
	"errors"
	"time"

	"tripstock/internal/shared/errs"

	"github.com/wb-go/wbf/retry"
)

// ErrVersionConflict signals that a version-checked write lost to a concurrent writer.
var ErrVersionConflict = errors.New("capacity version conflict")

// RetryPolicy bounds the optimistic write loop by attempts and wall time.
// Delays start at BaseDelay and double per attempt.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	Deadline  time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  5,
		BaseDelay: 5 * time.Millisecond,
		Deadline:  2 * time.Second,
	}
}

func (p RetryPolicy) strategy() retry.Strategy {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.Strategy{
		Attempts: attempts,
		Delay:    p.BaseDelay,
		Backoff:  2,
	}
}

// Run calls fn until it returns something other than ErrVersionConflict.
// Exhausting the attempts or the deadline yields errs.ErrTransientConflict.
func (p RetryPolicy) Run(ctx context.Context, fn func(attempt int) error) error {
	if p.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Deadline)
		defer cancel()
	}

	var (
		attempt int
		final   error
	)
	// only conflicts reach the retry loop; any other outcome ends it with nil
	conflict := retry.Do(func() error {
		if attempt > 0 && ctx.Err() != nil {
			final = errs.TransientConflictf("capacity write deadline exceeded after %d attempts", attempt)
			return nil
		}
		attempt++
		err := fn(attempt)
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		final = err
		return nil
	}, p.strategy())

	if conflict != nil {
		return errs.TransientConflictf("capacity write conflicted %d times", attempt)
	}
	return final
}
