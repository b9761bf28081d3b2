package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

const pushJobName = "surfbatch"

// NewMetricRecorder selects the recorder named by surfbatch.metrics.exporter.
// A Prometheus registry is written to the textfile and pushed to the Pushgateway, when
// those are configured, as the application stops. An OTLP meter provider is flushed
// and shut down.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) (metrics.MetricRecorder, error) {
	mc := cfg.Surfbatch.Metrics
	switch mc.Exporter {
	case "", "none":
		return metrics.NewNoOpMetricRecorder(), nil
	case "prometheus":
		recorder := NewPrometheusRecorder()
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if mc.TextfilePath != "" {
					if err := recorder.WriteToTextfile(mc.TextfilePath); err != nil {
						logger.Warnf("%v", err)
					} else {
						logger.Infof("Metrics written to '%s'.", mc.TextfilePath)
					}
				}
				if mc.PushgatewayURL != "" {
					if err := recorder.Push(ctx, mc.PushgatewayURL, pushJobName); err != nil {
						logger.Warnf("%v", err)
					} else {
						logger.Infof("Metrics pushed to '%s'.", mc.PushgatewayURL)
					}
				}
				return nil
			},
		})
		return recorder, nil
	case "otlp":
		mp, err := NewMeterProvider(context.Background(), cfg.Surfbatch.OTLP)
		if err != nil {
			return nil, exception.NewBatchError("metrics", "failed to create OTLP meter provider", err, false, false)
		}
		otel.SetMeterProvider(mp)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return mp.Shutdown(ctx)
			},
		})
		recorder, err := NewOTelMetricRecorder(mp)
		if err != nil {
			return nil, exception.NewBatchError("metrics", "failed to create OTLP instruments", err, false, false)
		}
		return recorder, nil
	default:
		return nil, exception.NewBatchErrorf("metrics", "unknown metrics exporter %q", mc.Exporter)
	}
}

// NewTracer returns an OpenTelemetry tracer exporting over OTLP when tracing is
// enabled, and a no-op tracer otherwise.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	if !cfg.Surfbatch.Tracing.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	tp, err := NewTracerProvider(context.Background(), cfg.Surfbatch.OTLP)
	if err != nil {
		return nil, exception.NewBatchError("metrics", "failed to create OTLP tracer provider", err, false, false)
	}
	otel.SetTracerProvider(tp)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return NewOpenTelemetryTracer(tp), nil
}

// Module provides the metrics.MetricRecorder and metrics.Tracer selected by configuration.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
