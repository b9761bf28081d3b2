package exception

import (
	"fmt"
)

// DuplicateRunError is returned by a launch whose parameters identify a JobInstance
// that already has a COMPLETED execution.
type DuplicateRunError struct {
	JobName       string
	InstanceID    string
	ExecutionID   string
	ParametersKey string
}

func (e *DuplicateRunError) Error() string {
	return fmt.Sprintf("job '%s' already completed for parameters %s (instance %s, execution %s)",
		e.JobName, e.ParametersKey, e.InstanceID, e.ExecutionID)
}

// JobExecutionAlreadyRunningError is returned when a launch targets a JobInstance
// whose latest execution has not reached a terminal status.
type JobExecutionAlreadyRunningError struct {
	JobName     string
	InstanceID  string
	ExecutionID string
	Status      string
}

func (e *JobExecutionAlreadyRunningError) Error() string {
	return fmt.Sprintf("job '%s' instance %s already has execution %s in status %s",
		e.JobName, e.InstanceID, e.ExecutionID, e.Status)
}

// ReadError reports that an item source failed to produce an item.
type ReadError struct {
	StepName string
	// ItemIndex is the 0-based position of the item that could not be read.
	ItemIndex int64
	Err       error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("step '%s': read of item %d failed: %v", e.StepName, e.ItemIndex, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports that a chunk could not be written or committed.
type WriteError struct {
	StepName string
	// Chunk is the 1-based index of the failed chunk within the step.
	Chunk int
	// Items is the number of items in the failed chunk.
	Items int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("step '%s': chunk %d (%d items) failed: %v", e.StepName, e.Chunk, e.Items, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// TransformError reports an item-level processing failure.
type TransformError struct {
	StepName string
	Item     any
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("step '%s': transform of item %v failed: %v", e.StepName, e.Item, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// TaskletError reports a failed tasklet invocation.
type TaskletError struct {
	StepName string
	// Invocation is the 1-based call count at which the tasklet failed.
	Invocation int
	Err        error
}

func (e *TaskletError) Error() string {
	return fmt.Sprintf("step '%s': tasklet invocation %d failed: %v", e.StepName, e.Invocation, e.Err)
}

func (e *TaskletError) Unwrap() error { return e.Err }

// StepFailedError is attached to a JobExecution when one of its steps fails.
type StepFailedError struct {
	StepName string
	Status   string
	Err      error
}

func (e *StepFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("step '%s' ended with status %s", e.StepName, e.Status)
	}
	return fmt.Sprintf("step '%s' ended with status %s: %v", e.StepName, e.Status, e.Err)
}

func (e *StepFailedError) Unwrap() error { return e.Err }
