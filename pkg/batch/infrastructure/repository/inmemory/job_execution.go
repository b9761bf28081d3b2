package inmemory

import (
	"context"
	"fmt"
	"time"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// CreateJobExecution checks the latest execution of instance and stores a new STARTING
// execution in the same critical section.
func (r *InMemoryJobRepository) CreateJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobInstances[instance.ID]; !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrJobInstanceNotFound, instance.ID)
	}

	var latest *model.JobExecution
	if ids := r.executionsByInstance[instance.ID]; len(ids) > 0 {
		latest = r.jobExecutions[ids[len(ids)-1]]
	}
	if err := repository.CheckExecutionAllowed(instance, latest); err != nil {
		return nil, err
	}

	je := model.NewJobExecution(instance)
	r.jobExecutions[je.ID] = stripSteps(je)
	r.executionsByInstance[instance.ID] = append(r.executionsByInstance[instance.ID], je.ID)
	return je, nil
}

// SaveJobExecution stores the current state of jobExecution.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobExecutions[jobExecution.ID]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrJobExecutionNotFound, jobExecution.ID)
	}
	if stored.Version != jobExecution.Version {
		return exception.NewOptimisticLockingFailureException("repository",
			fmt.Sprintf("JobExecution %s was modified concurrently (version %d, stored %d)", jobExecution.ID, jobExecution.Version, stored.Version), nil)
	}

	jobExecution.Version++
	jobExecution.LastUpdated = time.Now()
	r.jobExecutions[jobExecution.ID] = stripSteps(jobExecution)
	return nil
}

// FindJobExecutionByID loads the execution together with its step executions.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.assemble(stored), nil
}

// FindLatestJobExecution returns the newest execution of instance.
func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.executionsByInstance[instance.ID]
	if len(ids) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.assemble(r.jobExecutions[ids[len(ids)-1]]), nil
}

// FindJobExecutionsByJobInstance returns executions of instance, newest first.
func (r *InMemoryJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.executionsByInstance[instance.ID]
	out := make([]*model.JobExecution, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.assemble(r.jobExecutions[ids[i]]))
	}
	return out, nil
}

// assemble must be called with r.mu held.
func (r *InMemoryJobRepository) assemble(stored *model.JobExecution) *model.JobExecution {
	je := stored.Clone()
	for _, id := range r.stepsByExecution[je.ID] {
		je.AddStepExecution(r.stepExecutions[id].Clone())
	}
	return je
}

func stripSteps(je *model.JobExecution) *model.JobExecution {
	c := je.Clone()
	c.StepExecutions = nil
	return c
}
