package usecase

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
)

// JobsParams collects every job definition provided to the "batch_jobs" group.
type JobsParams struct {
	fx.In
	Jobs []port.Job `group:"batch_jobs"`
}

// Module provides the launcher, operator and explorer.
var Module = fx.Options(
	fx.Provide(func(p JobsParams) (*JobRegistry, error) { return NewJobRegistry(p.Jobs...) }),
	fx.Provide(NewExecutionRegistry),
	fx.Provide(NewSimpleJobLauncher),
	fx.Provide(func(l *SimpleJobLauncher) JobLauncher { return l }),
	fx.Provide(fx.Annotate(NewDefaultJobOperator, fx.As(new(JobOperator)))),
	fx.Provide(fx.Annotate(NewSimpleJobExplorer, fx.As(new(JobExplorer)))),
)
