// Package runner executes the steps of a Job for a JobExecution.
package runner

import (
	"context"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// SimpleJobRunner runs steps sequentially and halts at the first FAILED or STOPPED step.
type SimpleJobRunner struct {
	jobRepository repository.JobRepository
	stepExecutor  port.StepExecutor
	recorder      metrics.MetricRecorder
	tracer        metrics.Tracer
}

var _ port.JobRunner = (*SimpleJobRunner)(nil)

// NewSimpleJobRunner creates a SimpleJobRunner.
func NewSimpleJobRunner(
	repo repository.JobRepository,
	executor port.StepExecutor,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *SimpleJobRunner {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleJobRunner{
		jobRepository: repo,
		stepExecutor:  executor,
		recorder:      recorder,
		tracer:        tracer,
	}
}

// Run executes job for jobExecution, which must be in STARTING status.
// jobExecution is persisted at every status transition and after every step.
func (r *SimpleJobRunner) Run(ctx context.Context, job port.Job, jobExecution *model.JobExecution) {
	ctx, finishSpan := r.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	// MarkAsStarted only fails once the execution has left STARTING; it belongs to
	// another runner or is finished, so it is left untouched.
	if err := jobExecution.MarkAsStarted(); err != nil {
		logger.Errorf("JobRunner: cannot start JobExecution (ID: %s, status: %s): %v", jobExecution.ID, jobExecution.Status, err)
		return
	}
	if err := r.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobRunner: failed to persist JobExecution (ID: %s) as STARTED: %v", jobExecution.ID, err)
		_ = jobExecution.MarkAsFailed(err)
		r.save(ctx, jobExecution)
		return
	}

	r.recorder.RecordJobStart(ctx, jobExecution)
	listeners := job.Listeners()
	for _, l := range listeners {
		l.BeforeJob(ctx, jobExecution)
	}

	r.runSteps(ctx, job, jobExecution)

	for _, l := range listeners {
		l.AfterJob(ctx, jobExecution)
	}
	r.recorder.RecordJobEnd(ctx, jobExecution)
	r.save(ctx, jobExecution)
}

// runSteps leaves jobExecution in a terminal status.
func (r *SimpleJobRunner) runSteps(ctx context.Context, job port.Job, jobExecution *model.JobExecution) {
	for _, step := range job.Steps() {
		if jobExecution.IsStopRequested() {
			logger.Infof("Job '%s': stop requested before step '%s'.", job.Name(), step.Name())
			_ = jobExecution.MarkAsStopped()
			return
		}

		stepExecution := model.NewStepExecution(step.Name(), jobExecution)
		jobExecution.AddStepExecution(stepExecution)
		jobExecution.CurrentStepName = step.Name()
		if err := r.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			logger.Errorf("JobRunner: failed to persist StepExecution for step '%s': %v", step.Name(), err)
			_ = jobExecution.MarkAsFailed(err)
			return
		}

		stepErr := r.stepExecutor.ExecuteStep(ctx, step, jobExecution, stepExecution)

		switch stepExecution.Status {
		case model.StatusFailed:
			if stepErr == nil && len(stepExecution.Failures) > 0 {
				stepErr = exception.NewBatchError(step.Name(), stepExecution.Failures[0], nil, false, false)
			}
			r.tracer.RecordError(ctx, "job_runner", stepErr)
			_ = jobExecution.MarkAsFailed(&exception.StepFailedError{
				StepName: step.Name(),
				Status:   stepExecution.Status.String(),
				Err:      stepErr,
			})
			logger.Errorf("Job '%s' failed at step '%s': %v", job.Name(), step.Name(), stepErr)
			return
		case model.StatusStopped:
			_ = jobExecution.MarkAsStopped()
			logger.Infof("Job '%s' stopped at step '%s'.", job.Name(), step.Name())
			return
		}

		r.save(ctx, jobExecution)
	}
	_ = jobExecution.MarkAsCompleted()
}

func (r *SimpleJobRunner) save(ctx context.Context, jobExecution *model.JobExecution) {
	if err := r.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobRunner: failed to persist JobExecution (ID: %s, status: %s): %v", jobExecution.ID, jobExecution.Status, err)
	}
}
