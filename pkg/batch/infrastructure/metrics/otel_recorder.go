package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
)

// OTelMetricRecorder records batch metrics through an OpenTelemetry meter.
type OTelMetricRecorder struct {
	jobs         metric.Int64Counter
	jobDuration  metric.Float64Histogram
	steps        metric.Int64Counter
	stepDuration metric.Float64Histogram
	items        metric.Int64Counter
	chunks       metric.Int64Counter
	durations    metric.Float64Histogram
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)

// NewOTelMetricRecorder creates the instruments on mp.
func NewOTelMetricRecorder(mp metric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := mp.Meter(InstrumentationName)
	r := &OTelMetricRecorder{}
	var err error
	if r.jobs, err = meter.Int64Counter("batch.job.executions", metric.WithDescription("Job executions by final status.")); err != nil {
		return nil, err
	}
	if r.jobDuration, err = meter.Float64Histogram("batch.job.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.steps, err = meter.Int64Counter("batch.step.executions", metric.WithDescription("Step executions by final status.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("batch.step.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.items, err = meter.Int64Counter("batch.items", metric.WithDescription("Items by step and outcome.")); err != nil {
		return nil, err
	}
	if r.chunks, err = meter.Int64Counter("batch.chunks", metric.WithDescription("Chunks by step and outcome.")); err != nil {
		return nil, err
	}
	if r.durations, err = meter.Float64Histogram("batch.operation.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

func (r *OTelMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobs.Add(ctx, 1, attrs)
	if execution.StartTime != nil && execution.EndTime != nil {
		r.jobDuration.Record(ctx, execution.EndTime.Sub(*execution.StartTime).Seconds(), attrs)
	}
}

func (r *OTelMetricRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *OTelMetricRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job_name", jobNameOf(execution)),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	)
	r.steps.Add(ctx, 1, attrs)
	if execution.StartTime != nil && execution.EndTime != nil {
		r.stepDuration.Record(ctx, execution.EndTime.Sub(*execution.StartTime).Seconds(), attrs)
	}
}

func (r *OTelMetricRecorder) recordItems(ctx context.Context, stepName, outcome string, count int) {
	r.items.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("step_name", stepName),
		attribute.String("outcome", outcome),
	))
}

func (r *OTelMetricRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.recordItems(ctx, stepName, "read", count)
}

func (r *OTelMetricRecorder) RecordItemFilter(ctx context.Context, stepName string, count int) {
	r.recordItems(ctx, stepName, "filter", count)
}

func (r *OTelMetricRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.recordItems(ctx, stepName, "write", count)
}

func (r *OTelMetricRecorder) RecordItemSkip(ctx context.Context, stepName string, reason string, count int) {
	r.recordItems(ctx, stepName, "skip_"+reason, count)
}

func (r *OTelMetricRecorder) RecordChunkCommit(ctx context.Context, stepName string, size int) {
	r.chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("step_name", stepName), attribute.String("outcome", "commit")))
}

func (r *OTelMetricRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("step_name", stepName), attribute.String("outcome", "rollback")))
}

func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("operation", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.durations.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
