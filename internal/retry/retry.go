// Package retry wraps github.com/sethvargo/go-retry for the model oracles.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

const (
	baseDelay = 200 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// Do runs fn until it succeeds, returns a permanent error, or maxRetries
// retries have been spent. Only errors wrapped with Transient are retried.
func Do(ctx context.Context, op string, maxRetries int, fn func(ctx context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := goretry.NewExponential(baseDelay)
	b = goretry.WithCappedDuration(maxDelay, b)
	b = goretry.WithMaxRetries(uint64(maxRetries), b)

	attempt := 0
	err := goretry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && attempt > 1 {
			slog.Debug("retry attempt failed", "op", op, "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil && attempt > 1 {
		slog.Warn(op+" gave up", "attempts", attempt, "error", err)
	}
	return err
}

// Transient marks err as worth retrying. Context cancellation never is.
func Transient(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return goretry.RetryableError(err)
}

// RetryableStatus reports whether an HTTP status code signals a transient
// server condition.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// IsNetwork reports whether err came from the transport rather than the API.
func IsNetwork(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}
