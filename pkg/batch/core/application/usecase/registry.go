package usecase

import (
	"fmt"
	"sort"
	"sync"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// JobRegistry maps job names to their definitions.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]port.Job
}

// NewJobRegistry creates a registry holding jobs.
func NewJobRegistry(jobs ...port.Job) (*JobRegistry, error) {
	r := &JobRegistry{jobs: make(map[string]port.Job, len(jobs))}
	for _, j := range jobs {
		if err := r.Register(j); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds j. Names must be unique.
func (r *JobRegistry) Register(j port.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.Name()]; ok {
		return exception.NewInvalidDefinition("job_registry", "job '%s' is already registered", j.Name())
	}
	r.jobs[j.Name()] = j
	return nil
}

// Get returns the job named name.
func (r *JobRegistry) Get(name string) (port.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("no job named '%s' is registered", name)
	}
	return j, nil
}

// Names returns the registered job names, sorted.
func (r *JobRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecutionRegistry tracks the executions running in this process so that a stop
// request can reach the live JobExecution.
type ExecutionRegistry struct {
	mu      sync.Mutex
	running map[string]*model.JobExecution
}

// NewExecutionRegistry creates an empty ExecutionRegistry.
func NewExecutionRegistry() *ExecutionRegistry {
	return &ExecutionRegistry{running: make(map[string]*model.JobExecution)}
}

func (r *ExecutionRegistry) add(je *model.JobExecution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[je.ID] = je
}

func (r *ExecutionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

// Get returns the live execution with id.
func (r *ExecutionRegistry) Get(id string) (*model.JobExecution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	je, ok := r.running[id]
	return je, ok
}

// IDs returns the running execution IDs, sorted.
func (r *ExecutionRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.running))
	for id := range r.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopAll requests every running execution to stop.
func (r *ExecutionRegistry) StopAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, je := range r.running {
		je.RequestStop()
	}
	return len(r.running)
}
