// Package retry provides the bounded exponential-backoff wrapper used
// around the transport fetch and the draft-producer call. Callers hold
// independent Policy values per operation; a Policy carries no mutable
// state, so budgets never bleed between call sites.
package retry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxDelay caps the backoff delay when a Policy leaves MaxDelay
// unset.
const DefaultMaxDelay = 4 * time.Second

// Policy bounds one retryable operation: at most Attempts tries, with a
// delay of min(MaxDelay, BaseDelay*2^(k-1)) before attempt k+1.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Do runs fn until it succeeds or the attempt budget is exhausted,
// returning the zero value and the last error in the failure case.
// Attempts below 1 are treated as 1. The backoff sleep honors ctx
// cancellation.
func Do[T any](ctx context.Context, policy Policy, label string, log *logrus.Entry, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	var zero T
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if attempt >= attempts {
			break
		}

		delay := policy.BaseDelay << (attempt - 1)
		if delay > maxDelay || delay <= 0 {
			delay = maxDelay
		}

		if log != nil {
			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"of":      attempts,
				"delay":   delay,
			}).Debugf("%s failed: %v; retrying", label, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
