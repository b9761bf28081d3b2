// Package tasklet implements steps that run a single Tasklet until it reports FINISHED.
package tasklet

import (
	"context"
	"fmt"
	"time"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/retry"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// TaskletStep invokes its Tasklet repeatedly while it returns RepeatStatusContinuable.
// A failing invocation fails the step at once; there is no implicit retry.
type TaskletStep struct {
	name        string
	tasklet     port.Tasklet
	tracer      metrics.Tracer
	retryPolicy retry.RetryPolicy
}

var _ port.Step = (*TaskletStep)(nil)

// Option configures a TaskletStep.
type Option func(*TaskletStep)

// WithTracer records tasklet invocations as span events.
func WithTracer(t metrics.Tracer) Option {
	return func(s *TaskletStep) { s.tracer = t }
}

// WithRetryPolicy retries a failed invocation while policy allows it. Tasklets given
// a retry policy must be idempotent.
func WithRetryPolicy(policy retry.RetryPolicy) Option {
	return func(s *TaskletStep) { s.retryPolicy = policy }
}

// NewTaskletStep creates a tasklet step.
func NewTaskletStep(name string, tasklet port.Tasklet, opts ...Option) (*TaskletStep, error) {
	if name == "" {
		return nil, exception.NewInvalidDefinition("NewTaskletStep", "step name is required")
	}
	if tasklet == nil {
		return nil, exception.NewInvalidDefinition("NewTaskletStep", "step '%s': tasklet is required", name)
	}
	s := &TaskletStep{name: name, tasklet: tasklet, tracer: metrics.NewNoOpTracer()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the step name.
func (s *TaskletStep) Name() string {
	return s.name
}

// Execute calls the tasklet until it finishes, fails, or a stop is requested between calls.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error {
	logger.Infof("TaskletStep '%s' executing.", s.name)

	for invocation := 1; ; invocation++ {
		if jobExecution.IsStopRequested() {
			logger.Infof("TaskletStep '%s': stop requested before invocation %d.", s.name, invocation)
			return stepExecution.MarkAsStopped()
		}

		status, err := s.invokeWithRetry(ctx, stepExecution, invocation)
		if err != nil {
			terr := &exception.TaskletError{StepName: s.name, Invocation: invocation, Err: err}
			s.tracer.RecordError(ctx, "tasklet", terr)
			return terr
		}
		s.tracer.RecordEvent(ctx, "tasklet.invocation", map[string]interface{}{
			"step.name":     s.name,
			"invocation":    invocation,
			"repeat.status": status.String(),
		})

		if status == port.RepeatStatusFinished {
			logger.Infof("TaskletStep '%s' finished after %d invocation(s).", s.name, invocation)
			return nil
		}
	}
}

func (s *TaskletStep) invokeWithRetry(ctx context.Context, stepExecution *model.StepExecution, invocation int) (port.RepeatStatus, error) {
	status, err := s.invoke(ctx, stepExecution)
	if s.retryPolicy == nil {
		return status, err
	}
	for attempt := 1; err != nil && attempt < s.retryPolicy.GetMaxAttempts() && s.retryPolicy.ShouldRetry(err); attempt++ {
		wait := s.retryPolicy.GetBackoffInterval(attempt)
		logger.Warnf("TaskletStep '%s': invocation %d failed (attempt %d), retrying in %s: %v", s.name, invocation, attempt, wait, err)
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(wait):
		}
		status, err = s.invoke(ctx, stepExecution)
	}
	return status, err
}

func (s *TaskletStep) invoke(ctx context.Context, stepExecution *model.StepExecution) (status port.RepeatStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tasklet panicked: %v", r)
		}
	}()
	return s.tasklet.Execute(ctx, stepExecution)
}
