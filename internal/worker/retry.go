package worker

import "time"

// RetryPolicy bounds how often a task is retried and how long to wait between
// attempts. Delays grow exponentially from BaseDelay, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Exhausted reports whether the given attempt was the last one allowed.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Delay returns the wait before the attempt following the given failed one.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return min(p.BaseDelay*time.Duration(1<<(attempt-1)), p.MaxDelay)
}
