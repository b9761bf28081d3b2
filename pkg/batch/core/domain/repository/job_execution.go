package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// ErrJobExecutionNotFound is the error returned when a JobExecution is not found.
var ErrJobExecutionNotFound = errors.New("job execution not found")

func init() {
	exception.RegisterErrorType("ErrJobExecutionNotFound", ErrJobExecutionNotFound)
}

// JobExecution defines operations on job execution metadata.
type JobExecution interface {
	// CreateJobExecution atomically checks the latest execution of instance with
	// CheckExecutionAllowed and, if allowed, persists a new STARTING execution.
	CreateJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error)

	// SaveJobExecution persists the current state of jobExecution and increments its Version.
	// A stale Version yields an optimistic locking failure.
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// FindJobExecutionByID loads the execution with its StepExecutions.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)

	// FindLatestJobExecution returns the most recently created execution of instance,
	// or ErrJobExecutionNotFound when it has none.
	FindLatestJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error)

	// FindJobExecutionsByJobInstance returns executions of instance, newest first.
	FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error)
}
