// Package request provides the resilient HTTP executor: bounded timeout,
// retry with backoff on transient failure, and transparent
// re-authentication on 401 responses.
package request

import "time"

// Policy defines the retry behavior for failed requests.
type Policy struct {
	// MaxAttempts is the total number of attempts for one logical request.
	MaxAttempts int

	// BaseDelay is the delay unit between attempts. The wait before
	// attempt n+1 is BaseDelay * n, so delays grow linearly.
	BaseDelay time.Duration
}

// DefaultPolicy returns the default retry policy: three attempts with
// one-second linear backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// NextDelay calculates the delay after the given 1-based attempt number.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay * time.Duration(attempt)
}

// retryableStatus reports whether an HTTP status is worth retrying.
// Only server errors are transient; every 4xx is terminal.
func retryableStatus(status int) bool {
	return status >= 500
}
