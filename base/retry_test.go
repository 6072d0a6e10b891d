package base

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryNSucceedsAfterRetryableErrors(t *testing.T) {
	calls := 0
	err := RetryN(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return RetryableError("try again")
		}

		return nil
	}, nil, time.Millisecond, 5)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryNStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := RetryN(context.Background(), func(context.Context) error {
		calls++
		return permanent
	}, nil, time.Millisecond, 5)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryNHonorsRetryableFunc(t *testing.T) {
	flaky := errors.New("flaky")
	calls := 0
	err := RetryN(context.Background(), func(context.Context) error {
		calls++
		return flaky
	}, func(err error) bool {
		return errors.Is(err, flaky)
	}, time.Millisecond, 4)

	assert.ErrorIs(t, err, flaky)
	assert.Equal(t, 4, calls)
}

func TestRetryNStopsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryN(ctx, func(context.Context) error {
		calls++
		return RetryableError("try again")
	}, nil, time.Hour, 10)

	assert.ErrorIs(t, err, ErrRetryable)
	assert.Equal(t, 1, calls)
}

func TestFormatTimeUsesDisplayLocation(t *testing.T) {
	defer func(loc *time.Location) { DisplayLocation = loc }(DisplayLocation)

	assert.NoError(t, loadDisplayLocation(""))
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01 12:30", FormatTime(ts))

	DisplayLocation = time.FixedZone("UTC+8", 8*60*60)
	assert.Equal(t, "2024-03-01 20:30", FormatTime(ts))

	assert.Error(t, loadDisplayLocation("Not/AZone"))
}
