package groundextract

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// maxRetryAttempts caps exponential backoff at 5 attempts per the spec's
// "Transient failures ... are retried with exponential backoff (capped
// at 5 attempts, base 500 ms, jitter)".
const maxRetryAttempts = 5

// defaultRetryBase is the base backoff delay; doubled on every attempt
// and jittered by up to 20%.
const defaultRetryBase = 500 * time.Millisecond

// retryable runs call, retrying while it returns a retriable error
// (checked via errors.As against *InferenceError, or a context
// deadline/timeout), up to maxRetryAttempts times with exponential
// backoff and jitter. An *InferenceError with Retriable false (providers
// set that for a 4xx other than 429), or any other error, surfaces
// immediately without retry — matching the teacher's
// retryable() in utils.go, generalized from an unconditional retry loop
// to one that only retries transient inference failures.
func retryable(ctx context.Context, call func() error, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	delay := defaultRetryBase
	var lastErr error
	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetriable(err) || attempt == maxRetryAttempts {
			return err
		}
		log.Debug("groundextract: retrying after transient failure",
			"attempt", attempt+1, "max_attempts", maxRetryAttempts, "error", err, "delay", delay)

		jittered := delay + time.Duration(rand.Int64N(int64(delay)/5+1))
		select {
		case <-ctx.Done():
			return &CancellationError{Err: ctx.Err()}
		case <-time.After(jittered):
		}
		delay *= 2
	}
	return lastErr
}

func isRetriable(err error) bool {
	var infErr *InferenceError
	if errors.As(err, &infErr) {
		return infErr.Retriable
	}
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
