package port

import (
	"context"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

type stepExecutionKey struct{}

// WithStepExecution returns a context carrying the running StepExecution.
func WithStepExecution(ctx context.Context, stepExecution *model.StepExecution) context.Context {
	return context.WithValue(ctx, stepExecutionKey{}, stepExecution)
}

// StepExecutionFromContext returns the StepExecution set by the step executor, or nil
// outside a step.
func StepExecutionFromContext(ctx context.Context) *model.StepExecution {
	se, _ := ctx.Value(stepExecutionKey{}).(*model.StepExecution)
	return se
}
