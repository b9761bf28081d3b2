// Package skip decides whether an item-level transform failure may be skipped.
package skip

import (
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// SkipPolicy decides whether a failed item may be dropped instead of failing its chunk.
// Implementations are stateless; the running skip count comes from the StepExecution,
// so one policy serves every execution of a step.
type SkipPolicy interface {
	// ShouldSkip reports whether err may be skipped given skipCount items already skipped.
	ShouldSkip(err error, skipCount int64) bool
}

// LimitCheckingSkipPolicy skips errors that are skippable BatchErrors or match one of
// the configured error type names, up to SkipLimit items per step execution.
type LimitCheckingSkipPolicy struct {
	skipLimit           int64
	skippableExceptions []string
}

var _ SkipPolicy = (*LimitCheckingSkipPolicy)(nil)

// NewLimitCheckingSkipPolicy creates a policy. A skipLimit of 0 disables skipping.
// skippableExceptions are names understood by exception.IsErrorOfType.
func NewLimitCheckingSkipPolicy(skipLimit int64, skippableExceptions ...string) *LimitCheckingSkipPolicy {
	return &LimitCheckingSkipPolicy{
		skipLimit:           skipLimit,
		skippableExceptions: append([]string(nil), skippableExceptions...),
	}
}

// ShouldSkip implements SkipPolicy.
func (p *LimitCheckingSkipPolicy) ShouldSkip(err error, skipCount int64) bool {
	if err == nil || p.skipLimit <= 0 || skipCount >= p.skipLimit {
		return false
	}
	if exception.IsSkippable(err) {
		return true
	}
	for _, typeName := range p.skippableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// SkipLimit returns the configured limit.
func (p *LimitCheckingSkipPolicy) SkipLimit() int64 {
	return p.skipLimit
}

// NeverSkipPolicy never skips.
type NeverSkipPolicy struct{}

// ShouldSkip implements SkipPolicy.
func (NeverSkipPolicy) ShouldSkip(error, int64) bool { return false }
