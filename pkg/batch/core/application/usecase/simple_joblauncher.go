package usecase

import (
	"context"
	"fmt"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// SimpleJobLauncher runs jobs synchronously in the caller's goroutine.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobs          *JobRegistry
	jobRunner     port.JobRunner
	executions    *ExecutionRegistry
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)

// NewSimpleJobLauncher creates a SimpleJobLauncher.
func NewSimpleJobLauncher(
	repo repository.JobRepository,
	jobs *JobRegistry,
	runner port.JobRunner,
	executions *ExecutionRegistry,
) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository: repo,
		jobs:          jobs,
		jobRunner:     runner,
		executions:    executions,
	}
}

// Launch applies the job's incrementer to params, resolves the JobInstance, creates a
// JobExecution and runs it.
//
// Returns:
//
//	*exception.DuplicateRunError when the instance already has a COMPLETED execution.
//	*exception.JobExecutionAlreadyRunningError when it has a running execution.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	job, err := l.jobs.Get(jobName)
	if err != nil {
		return nil, exception.NewBatchError("job_launcher", "failed to resolve job definition", err, false, false)
	}
	if inc := job.Incrementer(); inc != nil {
		params = inc.GetNext(params)
		logger.Debugf("Job '%s': parameters after incrementer: %s", jobName, params)
	}
	return l.launch(ctx, job, params)
}

func (l *SimpleJobLauncher) launch(ctx context.Context, job port.Job, params model.JobParameters) (*model.JobExecution, error) {
	jobName := job.Name()
	logger.Infof("Launching Job '%s'. Parameters: %s", jobName, params)

	if err := job.ValidateParameters(params); err != nil {
		logger.Errorf("Job '%s': JobParameters validation failed: %v", jobName, err)
		return nil, exception.NewBatchError("job_launcher", "JobParameters validation error", err, false, false)
	}

	instance, err := l.jobRepository.FindOrCreateJobInstance(ctx, jobName, params)
	if err != nil {
		return nil, exception.NewBatchError("job_launcher", fmt.Sprintf("failed to resolve JobInstance for '%s'", jobName), err, false, false)
	}

	jobExecution, err := l.jobRepository.CreateJobExecution(ctx, instance)
	if err != nil {
		logger.Warnf("Job '%s' (instance %s) was not launched: %v", jobName, instance.ID, err)
		return nil, err
	}
	logger.Infof("Created JobExecution (ID: %s) for JobInstance (ID: %s).", jobExecution.ID, instance.ID)

	l.executions.add(jobExecution)
	defer l.executions.remove(jobExecution.ID)

	l.jobRunner.Run(ctx, job, jobExecution)

	logger.Infof("Job '%s' (Execution ID: %s) finished with status %s.", jobName, jobExecution.ID, jobExecution.Status)
	return jobExecution, nil
}
