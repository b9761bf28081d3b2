// Package retry decides whether a failed tasklet invocation is attempted again.
package retry

import (
	"time"

	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// RetryPolicy defines retry logic.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the wait before the given retry attempt (starting from 1).
	GetBackoffInterval(attempt int) time.Duration
	// GetMaxAttempts returns the maximum number of attempts, the first one included.
	GetMaxAttempts() int
}

// SimpleRetryPolicy retries errors flagged retryable, or matching one of the configured
// error type names, with an exponential backoff capped at maxInterval.
type SimpleRetryPolicy struct {
	maxAttempts         int
	initialInterval     time.Duration
	maxInterval         time.Duration
	retryableExceptions []string
}

var _ RetryPolicy = (*SimpleRetryPolicy)(nil)

// NewSimpleRetryPolicy creates a SimpleRetryPolicy. maxAttempts below 1 is treated as 1,
// which disables retrying.
func NewSimpleRetryPolicy(maxAttempts int, initialInterval, maxInterval time.Duration, retryableExceptions ...string) *SimpleRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxInterval < initialInterval {
		maxInterval = initialInterval
	}
	return &SimpleRetryPolicy{
		maxAttempts:         maxAttempts,
		initialInterval:     initialInterval,
		maxInterval:         maxInterval,
		retryableExceptions: append([]string(nil), retryableExceptions...),
	}
}

// GetMaxAttempts returns the maximum number of attempts.
func (p *SimpleRetryPolicy) GetMaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry reports whether err is retryable: a BatchError flagged retryable, or an
// error matching one of the configured type names.
func (p *SimpleRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if exception.IsRetryable(err) {
		return true
	}
	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// GetBackoffInterval doubles the initial interval per attempt, up to the maximum.
func (p *SimpleRetryPolicy) GetBackoffInterval(attempt int) time.Duration {
	d := p.initialInterval
	for i := 1; i < attempt && d < p.maxInterval; i++ {
		d *= 2
	}
	if d > p.maxInterval {
		d = p.maxInterval
	}
	return d
}
