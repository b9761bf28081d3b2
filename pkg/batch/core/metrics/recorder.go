// Package metrics defines the observability ports used by the executors:
// a MetricRecorder for counters and durations and a Tracer for spans.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

// MetricRecorder records job, step and chunk metrics.
type MetricRecorder interface {
	// RecordJobStart is called when a JobExecution moves to STARTED.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd is called once the JobExecution reaches a terminal status.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart is called when a StepExecution moves to STARTED.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd is called once the StepExecution reaches a terminal status.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	// RecordItemRead counts items read by stepName.
	RecordItemRead(ctx context.Context, stepName string, count int)
	// RecordItemFilter counts items dropped by the transform of stepName.
	RecordItemFilter(ctx context.Context, stepName string, count int)
	// RecordItemWrite counts items written by committed chunks.
	RecordItemWrite(ctx context.Context, stepName string, count int)
	// RecordItemSkip counts skipped items; reason is "process" or "chunk".
	RecordItemSkip(ctx context.Context, stepName string, reason string, count int)
	// RecordChunkCommit counts a committed chunk of size items.
	RecordChunkCommit(ctx context.Context, stepName string, size int)
	// RecordChunkRollback counts a rolled back chunk.
	RecordChunkRollback(ctx context.Context, stepName string)
	// RecordDuration records an arbitrary named duration.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

// NoOpMetricRecorder discards everything.
type NoOpMetricRecorder struct{}

var _ MetricRecorder = NoOpMetricRecorder{}

// NewNoOpMetricRecorder returns a recorder that discards all metrics.
func NewNoOpMetricRecorder() MetricRecorder { return NoOpMetricRecorder{} }

func (NoOpMetricRecorder) RecordJobStart(context.Context, *model.JobExecution) {}
func (NoOpMetricRecorder) RecordJobEnd(context.Context, *model.JobExecution) {}
func (NoOpMetricRecorder) RecordStepStart(context.Context, *model.StepExecution) {}
func (NoOpMetricRecorder) RecordStepEnd(context.Context, *model.StepExecution) {}
func (NoOpMetricRecorder) RecordItemRead(context.Context, string, int) {}
func (NoOpMetricRecorder) RecordItemFilter(context.Context, string, int) {}
func (NoOpMetricRecorder) RecordItemWrite(context.Context, string, int) {}
func (NoOpMetricRecorder) RecordItemSkip(context.Context, string, string, int) {}
func (NoOpMetricRecorder) RecordChunkCommit(context.Context, string, int) {}
func (NoOpMetricRecorder) RecordChunkRollback(context.Context, string) {}
func (NoOpMetricRecorder) RecordDuration(context.Context, string, time.Duration, map[string]string) {}

// CompositeMetricRecorder fans out to several recorders.
type CompositeMetricRecorder []MetricRecorder

var _ MetricRecorder = CompositeMetricRecorder(nil)

func (c CompositeMetricRecorder) RecordJobStart(ctx context.Context, e *model.JobExecution) {
	for _, r := range c {
		r.RecordJobStart(ctx, e)
	}
}

func (c CompositeMetricRecorder) RecordJobEnd(ctx context.Context, e *model.JobExecution) {
	for _, r := range c {
		r.RecordJobEnd(ctx, e)
	}
}

func (c CompositeMetricRecorder) RecordStepStart(ctx context.Context, e *model.StepExecution) {
	for _, r := range c {
		r.RecordStepStart(ctx, e)
	}
}

func (c CompositeMetricRecorder) RecordStepEnd(ctx context.Context, e *model.StepExecution) {
	for _, r := range c {
		r.RecordStepEnd(ctx, e)
	}
}

func (c CompositeMetricRecorder) RecordItemRead(ctx context.Context, step string, n int) {
	for _, r := range c {
		r.RecordItemRead(ctx, step, n)
	}
}

func (c CompositeMetricRecorder) RecordItemFilter(ctx context.Context, step string, n int) {
	for _, r := range c {
		r.RecordItemFilter(ctx, step, n)
	}
}

func (c CompositeMetricRecorder) RecordItemWrite(ctx context.Context, step string, n int) {
	for _, r := range c {
		r.RecordItemWrite(ctx, step, n)
	}
}

func (c CompositeMetricRecorder) RecordItemSkip(ctx context.Context, step, reason string, n int) {
	for _, r := range c {
		r.RecordItemSkip(ctx, step, reason, n)
	}
}

func (c CompositeMetricRecorder) RecordChunkCommit(ctx context.Context, step string, size int) {
	for _, r := range c {
		r.RecordChunkCommit(ctx, step, size)
	}
}

func (c CompositeMetricRecorder) RecordChunkRollback(ctx context.Context, step string) {
	for _, r := range c {
		r.RecordChunkRollback(ctx, step)
	}
}

func (c CompositeMetricRecorder) RecordDuration(ctx context.Context, name string, d time.Duration, tags map[string]string) {
	for _, r := range c {
		r.RecordDuration(ctx, name, d, tags)
	}
}
