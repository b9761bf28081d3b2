package executor

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
)

// StepExecutorParams defines the dependencies for the step executor.
type StepExecutorParams struct {
	fx.In
	Repository repository.JobRepository
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	Listeners  []port.StepExecutionListener `group:"step_listeners"`
}

// NewStepExecutor creates a SimpleStepExecutor notifying every listener in the
// "step_listeners" group.
func NewStepExecutor(p StepExecutorParams) port.StepExecutor {
	return NewSimpleStepExecutor(p.Repository, p.Recorder, p.Tracer, p.Listeners...)
}

// Module provides the port.StepExecutor.
var Module = fx.Provide(NewStepExecutor)
