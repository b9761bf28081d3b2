package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// InstanceStatus is what `surfbatch status` reports about a JobInstance.
type InstanceStatus struct {
	Instance *model.JobInstance
	// Executions holds every execution of the instance, newest first.
	Executions []*model.JobExecution
}

// Latest returns the newest execution, or nil when the instance never ran.
func (s *InstanceStatus) Latest() *model.JobExecution {
	if len(s.Executions) == 0 {
		return nil
	}
	return s.Executions[0]
}

// SimpleJobExplorer answers read-only queries against a JobRepository.
type SimpleJobExplorer struct {
	repo repository.JobRepository
}

var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a SimpleJobExplorer.
func NewSimpleJobExplorer(repo repository.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{repo: repo}
}

func explorerError(err error, format string, args ...any) error {
	return exception.NewBatchError("job_explorer", fmt.Sprintf(format, args...), err, false, false)
}

func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	je, err := e.repo.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, explorerError(err, "no JobExecution %s", executionID)
	}
	return je, nil
}

func (e *SimpleJobExplorer) GetJobInstance(ctx context.Context, instanceID string) (*model.JobInstance, error) {
	instance, err := e.repo.FindJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, explorerError(err, "no JobInstance %s", instanceID)
	}
	return instance, nil
}

func (e *SimpleJobExplorer) GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error) {
	status, err := e.GetInstanceStatus(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return status.Executions, nil
}

// GetInstanceStatus loads an instance with all of its executions.
func (e *SimpleJobExplorer) GetInstanceStatus(ctx context.Context, instanceID string) (*InstanceStatus, error) {
	instance, err := e.GetJobInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	executions, err := e.repo.FindJobExecutionsByJobInstance(ctx, instance)
	if err != nil {
		return nil, explorerError(err, "cannot list executions of JobInstance %s", instanceID)
	}
	return &InstanceStatus{Instance: instance, Executions: executions}, nil
}

func (e *SimpleJobExplorer) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	return e.repo.GetJobInstanceCount(ctx, jobName)
}

func (e *SimpleJobExplorer) GetJobNames(ctx context.Context) ([]string, error) {
	return e.repo.GetJobNames(ctx)
}
