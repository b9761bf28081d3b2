package inmemory

import (
	"context"
	"sort"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
)

// FindOrCreateJobInstance returns the instance for (jobName, identifying params), creating it if absent.
func (r *InMemoryJobRepository) FindOrCreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := instanceKey(jobName, params.Hash())
	if id, ok := r.instanceKeys[key]; ok {
		return cloneInstance(r.jobInstances[id]), nil
	}

	instance := model.NewJobInstance(jobName, params)
	r.jobInstances[instance.ID] = cloneInstance(instance)
	r.instanceKeys[key] = instance.ID
	return instance, nil
}

// FindJobInstanceByID finds a JobInstance by its ID.
func (r *InMemoryJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.jobInstances[id]
	if !ok {
		return nil, repository.ErrJobInstanceNotFound
	}
	return cloneInstance(instance), nil
}

// FindJobInstanceByJobNameAndParameters finds a JobInstance by job name and identifying parameters.
func (r *InMemoryJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.instanceKeys[instanceKey(jobName, params.Hash())]
	if !ok {
		return nil, repository.ErrJobInstanceNotFound
	}
	return cloneInstance(r.jobInstances[id]), nil
}

// GetJobInstanceCount returns the number of instances of jobName.
func (r *InMemoryJobRepository) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, instance := range r.jobInstances {
		if instance.JobName == jobName {
			count++
		}
	}
	return count, nil
}

// GetJobNames returns the distinct job names, sorted.
func (r *InMemoryJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, instance := range r.jobInstances {
		if _, ok := seen[instance.JobName]; ok {
			continue
		}
		seen[instance.JobName] = struct{}{}
		names = append(names, instance.JobName)
	}
	sort.Strings(names)
	return names, nil
}

func cloneInstance(instance *model.JobInstance) *model.JobInstance {
	c := *instance
	return &c
}
