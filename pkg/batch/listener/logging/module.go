package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
)

// NewLoggingJobListenerFromConfig masks the keys listed under
// surfbatch.security.masked_parameter_keys.
func NewLoggingJobListenerFromConfig(cfg *config.Config) *LoggingJobListener {
	return NewLoggingJobListener(cfg.Surfbatch.Security.MaskedParameterKeys)
}

// Module provides the logging listeners. The step, chunk and skip listeners join
// the "step_listeners", "chunk_listeners" and "skip_listeners" groups.
var Module = fx.Options(
	fx.Provide(NewLoggingJobListenerFromConfig),
	fx.Provide(fx.Annotate(
		NewLoggingChunkListener,
		fx.As(new(port.ChunkListener)),
		fx.ResultTags(`group:"chunk_listeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingSkipListener,
		fx.As(new(port.SkipListener)),
		fx.ResultTags(`group:"skip_listeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"step_listeners"`),
	)),
)
