// Package inmemory provides a JobRepository kept in process memory.
// Every operation runs under one mutex, so duplicate-run detection is race-free
// within the process. Stored records are copies; callers never share state with the store.
package inmemory

import (
	"sync"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository is an in-memory implementation of repository.JobRepository.
type InMemoryJobRepository struct {
	mu sync.RWMutex

	jobInstances map[string]*model.JobInstance
	// instanceKeys maps jobName + "\x00" + parameters hash to an instance ID.
	instanceKeys map[string]string

	jobExecutions map[string]*model.JobExecution
	// executionsByInstance holds execution IDs in creation order.
	executionsByInstance map[string][]string

	stepExecutions map[string]*model.StepExecution
	stepsByExecution map[string][]string
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)

// NewInMemoryJobRepository creates an empty repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobInstances:         make(map[string]*model.JobInstance),
		instanceKeys:         make(map[string]string),
		jobExecutions:        make(map[string]*model.JobExecution),
		executionsByInstance: make(map[string][]string),
		stepExecutions:       make(map[string]*model.StepExecution),
		stepsByExecution:     make(map[string][]string),
	}
}

// Close releases nothing; the repository holds no external resources.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

func instanceKey(jobName, hash string) string {
	return jobName + "\x00" + hash
}
