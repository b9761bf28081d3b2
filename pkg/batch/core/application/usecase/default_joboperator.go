package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// DefaultJobOperator stops and restarts executions known to this process.
type DefaultJobOperator struct {
	jobRepository repository.JobRepository
	jobLauncher   *SimpleJobLauncher
	executions    *ExecutionRegistry
}

var _ JobOperator = (*DefaultJobOperator)(nil)

// NewDefaultJobOperator creates a DefaultJobOperator.
func NewDefaultJobOperator(repo repository.JobRepository, launcher *SimpleJobLauncher, executions *ExecutionRegistry) *DefaultJobOperator {
	return &DefaultJobOperator{
		jobRepository: repo,
		jobLauncher:   launcher,
		executions:    executions,
	}
}

// Stop flags a running execution. The job reaches STOPPED at its next chunk or step boundary.
func (o *DefaultJobOperator) Stop(ctx context.Context, executionID string) error {
	logger.Infof("JobOperator: stop requested for JobExecution (ID: %s).", executionID)

	if je, ok := o.executions.Get(executionID); ok {
		je.RequestStop()
		return nil
	}

	je, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return exception.NewBatchError("job_operator", fmt.Sprintf("failed to load JobExecution (ID: %s)", executionID), err, false, false)
	}
	if je.Status.IsFinished() {
		return exception.NewBatchErrorf("job_operator", "JobExecution (ID: %s) is not running (status: %s)", executionID, je.Status)
	}
	return exception.NewBatchErrorf("job_operator", "JobExecution (ID: %s) is %s but not running in this process", executionID, je.Status)
}

// Restart launches the JobInstance of a FAILED or STOPPED execution again with the
// same parameters. The incrementer is not applied.
func (o *DefaultJobOperator) Restart(ctx context.Context, executionID string) (*model.JobExecution, error) {
	logger.Infof("JobOperator: restart requested for JobExecution (ID: %s).", executionID)

	prev, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_operator", fmt.Sprintf("failed to load JobExecution (ID: %s)", executionID), err, false, false)
	}
	if prev.Status != model.StatusFailed && prev.Status != model.StatusStopped {
		return nil, exception.NewBatchErrorf("job_operator", "JobExecution (ID: %s) is not restartable (status: %s)", executionID, prev.Status)
	}

	job, err := o.jobLauncher.jobs.Get(prev.JobName)
	if err != nil {
		return nil, exception.NewBatchError("job_operator", "failed to resolve job definition", err, false, false)
	}
	return o.jobLauncher.launch(ctx, job, prev.Parameters)
}

// GetRunningExecutions returns the IDs of executions running in this process.
func (o *DefaultJobOperator) GetRunningExecutions() []string {
	return o.executions.IDs()
}
