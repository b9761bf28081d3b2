package inmemory

import (
	"context"
	"fmt"
	"time"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// SaveStepExecution inserts or updates stepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobExecutions[stepExecution.JobExecutionID]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrJobExecutionNotFound, stepExecution.JobExecutionID)
	}

	if stored, ok := r.stepExecutions[stepExecution.ID]; ok {
		if stored.Version != stepExecution.Version {
			return exception.NewOptimisticLockingFailureException("repository",
				fmt.Sprintf("StepExecution %s was modified concurrently", stepExecution.ID), nil)
		}
		stepExecution.Version++
	} else {
		r.stepsByExecution[stepExecution.JobExecutionID] = append(r.stepsByExecution[stepExecution.JobExecutionID], stepExecution.ID)
	}

	stepExecution.LastUpdated = time.Now()
	r.stepExecutions[stepExecution.ID] = stepExecution.Clone()
	return nil
}

// FindStepExecutionsByJobExecutionID returns the step executions in creation order.
func (r *InMemoryJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.stepsByExecution[jobExecutionID]
	out := make([]*model.StepExecution, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.stepExecutions[id].Clone())
	}
	return out, nil
}
