// Package job provides the default Job definition: a named, immutable, ordered list of steps.
package job

import (
	"fmt"
	"strings"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// SimpleJob runs its steps in order and stops at the first step that does not complete.
type SimpleJob struct {
	name        string
	steps       []port.Step
	incrementer port.JobParametersIncrementer
	required    []string
	listeners   []port.JobExecutionListener
}

var _ port.Job = (*SimpleJob)(nil)

// Option configures a SimpleJob.
type Option func(*SimpleJob)

// WithIncrementer sets the RunIdentity applied to every launch.
func WithIncrementer(inc port.JobParametersIncrementer) Option {
	return func(j *SimpleJob) { j.incrementer = inc }
}

// WithRequiredParameters makes launches without any of keys fail validation.
func WithRequiredParameters(keys ...string) Option {
	return func(j *SimpleJob) { j.required = append(j.required, keys...) }
}

// WithListeners registers job execution listeners.
func WithListeners(listeners ...port.JobExecutionListener) Option {
	return func(j *SimpleJob) { j.listeners = append(j.listeners, listeners...) }
}

// NewSimpleJob creates a job from at least one uniquely named step.
func NewSimpleJob(name string, steps []port.Step, opts ...Option) (*SimpleJob, error) {
	if name == "" {
		return nil, exception.NewInvalidDefinition("NewSimpleJob", "job name is required")
	}
	if len(steps) == 0 {
		return nil, exception.NewInvalidDefinition("NewSimpleJob", "job '%s' has no steps", name)
	}
	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s == nil {
			return nil, exception.NewInvalidDefinition("NewSimpleJob", "job '%s': step %d is nil", name, i)
		}
		if _, dup := seen[s.Name()]; dup {
			return nil, exception.NewInvalidDefinition("NewSimpleJob", "job '%s': duplicate step name '%s'", name, s.Name())
		}
		seen[s.Name()] = struct{}{}
	}

	j := &SimpleJob{name: name, steps: append([]port.Step(nil), steps...)}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Name returns the job name.
func (j *SimpleJob) Name() string {
	return j.name
}

// Steps returns a copy of the step list.
func (j *SimpleJob) Steps() []port.Step {
	return append([]port.Step(nil), j.steps...)
}

// Incrementer returns the configured RunIdentity, or nil.
func (j *SimpleJob) Incrementer() port.JobParametersIncrementer {
	return j.incrementer
}

// Listeners returns the job listeners.
func (j *SimpleJob) Listeners() []port.JobExecutionListener {
	return append([]port.JobExecutionListener(nil), j.listeners...)
}

// ValidateParameters checks that every required key is present.
func (j *SimpleJob) ValidateParameters(params model.JobParameters) error {
	logger.Debugf("Job '%s': validating parameters %s", j.name, params)
	var missing []string
	for _, key := range j.required {
		if _, ok := params.Get(key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return exception.NewBatchError(j.name, fmt.Sprintf("missing required job parameters: %s", strings.Join(missing, ", ")), nil, false, false)
	}
	return nil
}
