package model

import (
	"errors"
	"fmt"
)

// JobStatus is the lifecycle status shared by JobExecution and StepExecution.
type JobStatus string

const (
	// StatusStarting is assigned when the execution record is created.
	StatusStarting JobStatus = "STARTING"
	// StatusStarted is assigned once work begins.
	StatusStarted JobStatus = "STARTED"
	// StatusCompleted means every unit of work succeeded.
	StatusCompleted JobStatus = "COMPLETED"
	// StatusFailed means the execution ended on an error.
	StatusFailed JobStatus = "FAILED"
	// StatusStopped means the execution honored a stop request.
	StatusStopped JobStatus = "STOPPED"
)

func (s JobStatus) String() string {
	return string(s)
}

// IsFinished reports whether s is terminal. Terminal statuses never change.
func (s JobStatus) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// IsRunning reports whether s is STARTING or STARTED.
func (s JobStatus) IsRunning() bool {
	return s == StatusStarting || s == StatusStarted
}

// ToExitStatus maps a terminal status to its default exit status.
func (s JobStatus) ToExitStatus() ExitStatus {
	switch s {
	case StatusCompleted:
		return ExitStatusCompleted
	case StatusFailed:
		return ExitStatusFailed
	case StatusStopped:
		return ExitStatusStopped
	case StatusStarted:
		return ExitStatusExecuting
	default:
		return ExitStatusUnknown
	}
}

// ParseJobStatus converts a persisted status string.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case StatusStarting, StatusStarted, StatusCompleted, StatusFailed, StatusStopped:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// ExitStatus is the exit code recorded on a finished execution.
type ExitStatus string

const (
	ExitStatusUnknown            ExitStatus = "UNKNOWN"
	ExitStatusExecuting          ExitStatus = "EXECUTING"
	ExitStatusCompleted          ExitStatus = "COMPLETED"
	ExitStatusCompletedWithSkips ExitStatus = "COMPLETED_WITH_SKIPS"
	ExitStatusFailed             ExitStatus = "FAILED"
	ExitStatusStopped            ExitStatus = "STOPPED"
)

func (s ExitStatus) String() string {
	return string(s)
}

// ErrInvalidStatusTransition is returned when a transition leaves a terminal
// status or skips a stage of STARTING -> STARTED -> (COMPLETED | FAILED | STOPPED).
var ErrInvalidStatusTransition = errors.New("invalid status transition")

func isValidTransition(current, next JobStatus) bool {
	switch current {
	case StatusStarting:
		return next == StatusStarted
	case StatusStarted:
		return next.IsFinished()
	default:
		return false
	}
}

func transitionError(kind, id string, current, next JobStatus) error {
	return fmt.Errorf("%w: %s %s cannot move from %s to %s", ErrInvalidStatusTransition, kind, id, current, next)
}
