// Package executor drives a single Step through its StepExecution lifecycle.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// SimpleStepExecutor runs a Step synchronously in the caller's goroutine.
// It owns the StepExecution status transitions and persists the execution
// when it starts and once it reaches a terminal status.
type SimpleStepExecutor struct {
	repo      repository.StepExecution
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
	listeners []port.StepExecutionListener
}

var _ port.StepExecutor = (*SimpleStepExecutor)(nil)

// NewSimpleStepExecutor creates a SimpleStepExecutor. A nil recorder or tracer is
// replaced by its no-op implementation.
func NewSimpleStepExecutor(
	repo repository.StepExecution,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	listeners ...port.StepExecutionListener,
) *SimpleStepExecutor {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleStepExecutor{
		repo:      repo,
		recorder:  recorder,
		tracer:    tracer,
		listeners: listeners,
	}
}

// ExecuteStep runs step for stepExecution and leaves it COMPLETED, FAILED or STOPPED.
func (e *SimpleStepExecutor) ExecuteStep(ctx context.Context, step port.Step, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error {
	ctx, finishSpan := e.tracer.StartStepSpan(ctx, stepExecution)
	defer finishSpan()
	ctx = port.WithStepExecution(ctx, stepExecution)

	if stepExecution.JobExecution == nil {
		stepExecution.JobExecution = jobExecution
	}

	if err := stepExecution.MarkAsStarted(); err != nil {
		return err
	}
	if err := e.repo.SaveStepExecution(ctx, stepExecution); err != nil {
		logger.Errorf("StepExecutor: failed to persist StepExecution (ID: %s) as STARTED: %v", stepExecution.ID, err)
		perr := exception.NewBatchError("step_executor", fmt.Sprintf("failed to persist start of step '%s'", stepExecution.StepName), err, false, false)
		_ = stepExecution.MarkAsFailed(perr)
		e.save(ctx, stepExecution)
		return perr
	}

	e.recorder.RecordStepStart(ctx, stepExecution)
	for _, l := range e.listeners {
		l.BeforeStep(ctx, stepExecution)
	}

	stepErr := e.run(ctx, step, jobExecution, stepExecution)
	e.finalize(ctx, stepExecution, stepErr)

	for _, l := range e.listeners {
		l.AfterStep(ctx, stepExecution)
	}
	e.recorder.RecordStepEnd(ctx, stepExecution)
	e.save(ctx, stepExecution)

	if stepExecution.Status == model.StatusFailed {
		return stepErr
	}
	return nil
}

func (e *SimpleStepExecutor) run(ctx context.Context, step port.Step, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("StepExecutor: step '%s' panicked: %v\n%s", step.Name(), r, debug.Stack())
			err = exception.NewBatchErrorf("step_executor", "step '%s' panicked: %s", step.Name(), fmt.Sprint(r))
		}
	}()
	return step.Execute(ctx, jobExecution, stepExecution)
}

// finalize moves the execution to its terminal status unless the step already did.
func (e *SimpleStepExecutor) finalize(ctx context.Context, stepExecution *model.StepExecution, stepErr error) {
	if stepExecution.Status.IsFinished() {
		if stepErr != nil && stepExecution.Status != model.StatusFailed {
			logger.Warnf("StepExecutor: step '%s' returned an error after reaching %s: %v", stepExecution.StepName, stepExecution.Status, stepErr)
			stepExecution.AddFailureException(stepErr)
		}
		return
	}

	if stepErr != nil {
		e.tracer.RecordError(ctx, "step_executor", stepErr)
		logger.Errorf("Step '%s' failed: %v", stepExecution.StepName, stepErr)
		_ = stepExecution.MarkAsFailed(stepErr)
		return
	}
	_ = stepExecution.MarkAsCompleted()
	logger.Infof("Step '%s' completed: %s", stepExecution.StepName, stepExecution)
}

func (e *SimpleStepExecutor) save(ctx context.Context, stepExecution *model.StepExecution) {
	if err := e.repo.SaveStepExecution(ctx, stepExecution); err != nil {
		logger.Errorf("StepExecutor: failed to persist StepExecution (ID: %s, status: %s): %v", stepExecution.ID, stepExecution.Status, err)
	}
}
