package sync

import (
	"context"
	"time"
)

// BackoffPolicy bounds detail-fetch retries. Delay is a pure function of the
// zero-indexed attempt number: base, 2*base, 4*base, ...
type BackoffPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultBackoff is the production policy: 3 attempts, 1s/2s delays between
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay returns the wait before retrying after the given failed attempt
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << uint(attempt)
}

// sleepContext waits for d or until ctx is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
