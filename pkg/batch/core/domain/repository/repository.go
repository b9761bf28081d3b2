// Package repository defines the JobRepository contract: durable job-run bookkeeping
// consumed by the launcher and executors.
package repository

import (
	"fmt"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// JobRepository persists JobInstances, JobExecutions and StepExecutions.
//
// Implementations must serialize concurrent writers to the same JobInstance:
// of two near-simultaneous CreateJobExecution calls for one instance, at most one
// may succeed.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}

// CheckExecutionAllowed decides whether a new execution may be created for instance
// given its latest execution (nil when there is none).
//
// Returns:
//
//	*exception.DuplicateRunError when latest is COMPLETED.
//	*exception.JobExecutionAlreadyRunningError when latest is STARTING or STARTED.
//	nil when there is no latest execution or it ended FAILED or STOPPED.
func CheckExecutionAllowed(instance *model.JobInstance, latest *model.JobExecution) error {
	if latest == nil {
		return nil
	}
	switch {
	case latest.Status == model.StatusCompleted:
		return &exception.DuplicateRunError{
			JobName:       instance.JobName,
			InstanceID:    instance.ID,
			ExecutionID:   latest.ID,
			ParametersKey: instance.Parameters.Identifying().String(),
		}
	case latest.Status.IsRunning():
		return &exception.JobExecutionAlreadyRunningError{
			JobName:     instance.JobName,
			InstanceID:  instance.ID,
			ExecutionID: latest.ID,
			Status:      latest.Status.String(),
		}
	case latest.Status.IsFinished():
		return nil
	}
	return fmt.Errorf("job execution %s has unknown status %q", latest.ID, latest.Status)
}
