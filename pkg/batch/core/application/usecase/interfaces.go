// Package usecase holds the entry points used by the CLI: launching jobs, stopping
// and restarting executions, and querying batch metadata.
package usecase

import (
	"context"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

// JobLauncher starts a Job with JobParameters.
type JobLauncher interface {
	// Launch runs the named job to completion and returns its JobExecution.
	// The error reports a failure to launch (unknown job, invalid parameters,
	// duplicate run); a job that ran and failed is reported through the
	// execution's status, not the error.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobOperator performs operations on executions.
type JobOperator interface {
	// Stop requests a running execution to stop at its next chunk or step boundary.
	Stop(ctx context.Context, executionID string) error
	// Restart launches a new execution of the instance of a FAILED or STOPPED execution.
	Restart(ctx context.Context, executionID string) (*model.JobExecution, error)
	// GetRunningExecutions returns the IDs of executions running in this process.
	GetRunningExecutions() []string
}

// JobExplorer queries batch metadata.
type JobExplorer interface {
	// GetJobExecution retrieves a JobExecution by its ID.
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)

	// GetJobExecutions retrieves the executions of a JobInstance, newest first.
	GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error)

	// GetInstanceStatus retrieves a JobInstance together with its executions.
	GetInstanceStatus(ctx context.Context, instanceID string) (*InstanceStatus, error)

	// GetJobInstance retrieves a JobInstance by its ID.
	GetJobInstance(ctx context.Context, instanceID string) (*model.JobInstance, error)

	// GetJobInstanceCount returns the number of instances of jobName.
	GetJobInstanceCount(ctx context.Context, jobName string) (int, error)

	// GetJobNames retrieves the names of all jobs that have run.
	GetJobNames(ctx context.Context) ([]string, error)
}
