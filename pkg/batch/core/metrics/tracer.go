package metrics

import (
	"context"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

// Tracer opens spans around job and step executions.
type Tracer interface {
	// StartJobSpan starts a span for execution and returns the derived context
	// and a function that ends the span.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a span for a step execution.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError marks the current span as failed.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds an event to the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}

// NoOpTracer creates no spans.
type NoOpTracer struct{}

var _ Tracer = NoOpTracer{}

// NewNoOpTracer returns a tracer that records nothing.
func NewNoOpTracer() Tracer { return NoOpTracer{} }

func (NoOpTracer) StartJobSpan(ctx context.Context, _ *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (NoOpTracer) StartStepSpan(ctx context.Context, _ *model.StepExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (NoOpTracer) RecordError(context.Context, string, error) {}

func (NoOpTracer) RecordEvent(context.Context, string, map[string]interface{}) {}
