package groundextract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryable_SucceedsWithoutRetryOnFirstSuccess(t *testing.T) {
	calls := 0
	err := retryable(context.Background(), func() error {
		calls++
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryable_RetriesRetriableErrorThenSucceeds(t *testing.T) {
	calls := 0
	err := retryable(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &InferenceError{Provider: "fake", Retriable: true, Err: errors.New("transient")}
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryable_DoesNotRetryNonRetriableError(t *testing.T) {
	calls := 0
	sentinel := errors.New("fatal")
	err := retryable(context.Background(), func() error {
		calls++
		return &InferenceError{Provider: "fake", Retriable: false, Err: sentinel}
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryable_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := retryable(context.Background(), func() error {
		calls++
		return &InferenceError{Provider: "fake", Retriable: true, Err: errors.New("always fails")}
	}, nil)
	require.Error(t, err)
	assert.Equal(t, maxRetryAttempts+1, calls)
}

func TestRetryable_AbortsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryable(ctx, func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return &InferenceError{Provider: "fake", Retriable: true, Err: errors.New("transient")}
	}, nil)
	require.Error(t, err)
	var ce *CancellationError
	require.ErrorAs(t, err, &ce)
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, isRetriable(&InferenceError{Retriable: true}))
	assert.False(t, isRetriable(&InferenceError{Retriable: false}))
	assert.True(t, isRetriable(&TimeoutError{Stage: "call"}))
	assert.True(t, isRetriable(context.DeadlineExceeded))
	assert.False(t, isRetriable(errors.New("plain")))
}
