package base

import (
	"context"
	"errors"
	"time"
)

// ErrRetryable means an operation is retryable.
var ErrRetryable = errors.New("retryable")

// RetryableError is an error indicating that an operation is retryable.
type RetryableError string

// Error implements the `error`.
func (re RetryableError) Error() string {
	return string(re)
}

// Is reports whether the target is `ErrRetryable`.
func (RetryableError) Is(target error) bool {
	return target == ErrRetryable
}

// RetryN calls the f until it succeeds, returns an error that neither wraps
// the `ErrRetryable` nor satisfies the retryable, or has been called n times.
// The nap is slept between two calls and is cut short by the ctx.
func RetryN(
	ctx context.Context,
	f func(ctx context.Context) error,
	retryable func(err error) bool,
	nap time.Duration,
	n int,
) error {
	if retryable == nil {
		retryable = func(error) bool { return false }
	}

	var err error
	for i := 0; i < max(n, 1); i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(nap):
			}
		}

		err = f(ctx)
		if err == nil ||
			(!errors.Is(err, ErrRetryable) && !retryable(err)) {
			return err
		}
	}

	return err
}
