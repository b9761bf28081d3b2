// Package exception provides the error types shared by the batch engine.
// BatchError carries the module that failed plus skip and retry hints; the
// taxonomy errors (ReadError, WriteError, ...) describe where a run failed.
package exception

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

var (
	errorRegistry = make(map[string]error)
	registryMutex sync.RWMutex
)

// RegisterErrorType registers a named error prototype so that configuration
// (for example a skippable-exception list) can refer to it by name.
// It panics when name is empty or prototype is nil.
func RegisterErrorType(name string, prototype error) {
	if name == "" {
		panic("error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("cannot register nil prototype for name: %s", name))
	}
	registryMutex.Lock()
	defer registryMutex.Unlock()
	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered reports whether name is known to the registry.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is an error raised by a batch component.
type BatchError struct {
	// Module names the component that failed (e.g. "reader", "writer", "repository").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause.
	OriginalErr error
	// StackTrace is captured at construction for debugging.
	StackTrace string

	isRetryable bool
	isSkippable bool
}

// NewBatchError creates a new BatchError.
//
// Parameters:
//
//	module: The module where the error occurred.
//	message: The error message.
//	originalErr: The cause to wrap, may be nil.
//	isSkippable: Whether an item that raised this error may be skipped.
//	isRetryable: Whether the operation may be retried.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
		isRetryable: isRetryable,
		isSkippable: isSkippable,
	}
}

// NewBatchErrorf creates a BatchError using a format string.
// Trailing arguments are inspected from the end: an error becomes the cause,
// then an optional bool isRetryable, then an optional bool isSkippable.
// The rest feed fmt.Sprintf.
//
//	NewBatchErrorf("writer", "insert into %s failed", table, err)
//	NewBatchErrorf("reader", "bad row %d", n, true, false, err)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	var isRetryable, isSkippable bool
	args := a

	if n := len(args); n > 0 {
		if err, ok := args[n-1].(error); ok {
			originalErr = err
			args = args[:n-1]
		}
	}
	if n := len(args); n > 0 {
		if b, ok := args[n-1].(bool); ok {
			isRetryable = b
			args = args[:n-1]
		}
	}
	if n := len(args); n > 0 {
		if b, ok := args[n-1].(bool); ok {
			isSkippable = b
			args = args[:n-1]
		}
	}

	return NewBatchError(module, fmt.Sprintf(format, args...), originalErr, isSkippable, isRetryable)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err's chain contains a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsSkippable reports whether the first BatchError in err's chain is marked skippable.
func IsSkippable(err error) bool {
	var be *BatchError
	return errors.As(err, &be) && be.IsSkippable()
}

// IsRetryable reports whether err wraps a BatchError flagged as retryable.
func IsRetryable(err error) bool {
	var be *BatchError
	return errors.As(err, &be) && be.IsRetryable()
}

// ErrOptimisticLockingFailure reports a concurrent modification of a versioned record.
var ErrOptimisticLockingFailure = errors.New("OptimisticLockingFailureException")

// ErrInvalidDefinition marks programmer errors in job or step construction.
var ErrInvalidDefinition = errors.New("invalid batch definition")

// NewOptimisticLockingFailureException creates a BatchError wrapping ErrOptimisticLockingFailure.
// It is neither retryable nor skippable.
func NewOptimisticLockingFailureException(module, message string, originalErr error) *BatchError {
	wrapped := ErrOptimisticLockingFailure
	if originalErr != nil {
		wrapped = errors.Join(ErrOptimisticLockingFailure, originalErr)
	}
	return NewBatchError(module, message, wrapped, false, false)
}

// IsOptimisticLockingFailure reports whether err indicates an optimistic locking failure.
func IsOptimisticLockingFailure(err error) bool {
	return errors.Is(err, ErrOptimisticLockingFailure)
}

// NewInvalidDefinition returns a BatchError for a malformed job or step definition.
func NewInvalidDefinition(module, format string, a ...interface{}) *BatchError {
	return NewBatchError(module, fmt.Sprintf(format, a...), ErrInvalidDefinition, false, false)
}

// IsErrorOfType reports whether err matches errorTypeName. The name is checked,
// in order, against registered prototypes (errors.Is), the Go type name of each
// error in the chain (e.g. "*strconv.NumError"), and finally as a substring of
// each error message.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil || errorTypeName == "" {
		return false
	}

	registryMutex.RLock()
	target, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, target) {
		return true
	}

	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if t := reflect.TypeOf(cur); t != nil {
			if t.String() == errorTypeName || (t.Kind() == reflect.Ptr && t.Elem().String() == errorTypeName) {
				return true
			}
		}
		if strings.Contains(cur.Error(), errorTypeName) {
			return true
		}
	}
	return false
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) && be == err {
		return be.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType("OptimisticLockingFailureException", ErrOptimisticLockingFailure)
	RegisterErrorType("io.EOF", io.EOF)
	RegisterErrorType("io.ErrUnexpectedEOF", io.ErrUnexpectedEOF)
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows)
}
