package lib

import (
	"context"
	"errors"
)

// RetryWithContext calls fn up to maxTries times until it succeeds or ctx is
// done. attempt starts at 1. If maxTries <= 0, it defaults to 1. A context
// error from fn stops the loop at once; otherwise the last error is returned.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var zero T
	var lastErr error
	for i := 1; i <= maxTries; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx, i)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}
