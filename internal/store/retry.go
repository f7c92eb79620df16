package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/phrazzld/coursework/internal/platform/logger"
)

// RetryPolicy bounds how often an idempotent read is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// IsTransient reports whether err may succeed on a plain retry.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrTransactionFailed),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return true
	default:
		return false
	}
}

// RetryRead runs read until it succeeds, fails with a non-transient error or
// the policy is exhausted. Only use it for reads: writes go through a
// UnitOfWork and are never retried here.
func RetryRead[T any](ctx context.Context, policy RetryPolicy, read func(ctx context.Context) (T, error)) (T, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	if policy.MaxInterval > 0 {
		exp.MaxInterval = policy.MaxInterval
	}
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, policy.MaxRetries), ctx)
	log := logger.FromContext(ctx)

	return backoff.RetryNotifyWithData(func() (T, error) {
		v, err := read(ctx)
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b, func(err error, wait time.Duration) {
		log.Debug("retrying read",
			slog.String("error", err.Error()),
			slog.Duration("wait", wait))
	})
}
