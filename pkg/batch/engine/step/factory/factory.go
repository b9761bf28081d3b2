// Package factory builds steps with the framework-wide defaults from configuration:
// chunk size, failure policy, skip policy, listeners, metrics and tracing.
package factory

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
	itemstep "github.com/tigerroll/surfbatch/pkg/batch/engine/step/item"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/skip"
	taskletstep "github.com/tigerroll/surfbatch/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// StepFactory creates steps carrying the configured defaults.
type StepFactory interface {
	// CreateTaskletStep constructs a tasklet-oriented Step.
	CreateTaskletStep(name string, tasklet port.Tasklet, opts ...taskletstep.Option) (port.Step, error)
	// ChunkSize returns the default chunk size.
	ChunkSize() int
	// ChunkOptions returns the default chunk options followed by overrides.
	ChunkOptions(overrides ...itemstep.ChunkOption) []itemstep.ChunkOption
}

// DefaultStepFactory implements StepFactory on a BatchConfig.
type DefaultStepFactory struct {
	batch          config.BatchConfig
	failurePolicy  itemstep.FailurePolicy
	skipPolicy     skip.SkipPolicy
	recorder       metrics.MetricRecorder
	tracer         metrics.Tracer
	chunkListeners []port.ChunkListener
	skipListeners  []port.SkipListener
}

var _ StepFactory = (*DefaultStepFactory)(nil)

// DefaultStepFactoryParams defines the dependencies for NewDefaultStepFactory.
type DefaultStepFactoryParams struct {
	fx.In
	Config         *config.Config
	Recorder       metrics.MetricRecorder
	Tracer         metrics.Tracer
	ChunkListeners []port.ChunkListener `group:"chunk_listeners"`
	SkipListeners  []port.SkipListener  `group:"skip_listeners"`
}

// NewDefaultStepFactory creates a DefaultStepFactory.
//
// Returns:
//
//	An ErrInvalidDefinition error when the configured failure policy is unknown.
func NewDefaultStepFactory(p DefaultStepFactoryParams) (*DefaultStepFactory, error) {
	batch := p.Config.Surfbatch.Batch
	policy, err := itemstep.ParseFailurePolicy(batch.FailurePolicy)
	if err != nil {
		return nil, exception.NewInvalidDefinition("step_factory", "%v", err)
	}

	var skipPolicy skip.SkipPolicy = skip.NeverSkipPolicy{}
	if batch.SkipLimit > 0 {
		skipPolicy = skip.NewLimitCheckingSkipPolicy(int64(batch.SkipLimit), batch.SkippableErrors...)
	}

	recorder, tracer := p.Recorder, p.Tracer
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	logger.Debugf("StepFactory: chunk size %d, failure policy %s, skip limit %d.", batch.ChunkSize, policy, batch.SkipLimit)
	return &DefaultStepFactory{
		batch:          batch,
		failurePolicy:  policy,
		skipPolicy:     skipPolicy,
		recorder:       recorder,
		tracer:         tracer,
		chunkListeners: p.ChunkListeners,
		skipListeners:  p.SkipListeners,
	}, nil
}

// CreateTaskletStep constructs a tasklet step traced by the configured tracer.
func (f *DefaultStepFactory) CreateTaskletStep(name string, tasklet port.Tasklet, opts ...taskletstep.Option) (port.Step, error) {
	opts = append([]taskletstep.Option{taskletstep.WithTracer(f.tracer)}, opts...)
	return taskletstep.NewTaskletStep(name, tasklet, opts...)
}

// ChunkSize returns surfbatch.batch.chunk_size.
func (f *DefaultStepFactory) ChunkSize() int {
	return f.batch.ChunkSize
}

// ChunkOptions returns the default chunk options followed by overrides, so an
// override such as WithTransactionManager wins.
func (f *DefaultStepFactory) ChunkOptions(overrides ...itemstep.ChunkOption) []itemstep.ChunkOption {
	opts := []itemstep.ChunkOption{
		itemstep.WithFailurePolicy(f.failurePolicy),
		itemstep.WithSkipPolicy(f.skipPolicy),
		itemstep.WithMetricRecorder(f.recorder),
		itemstep.WithTracer(f.tracer),
		itemstep.WithChunkListeners(f.chunkListeners...),
		itemstep.WithSkipListeners(f.skipListeners...),
	}
	return append(opts, overrides...)
}

// CreateChunkStep constructs a chunk step with f's chunk size and options.
func CreateChunkStep[I, O any](
	f StepFactory,
	name string,
	reader port.ItemReader[I],
	processor port.ItemProcessor[I, O],
	writer port.ItemWriter[O],
	overrides ...itemstep.ChunkOption,
) (port.Step, error) {
	return itemstep.NewChunkStep[I, O](name, reader, processor, writer, f.ChunkSize(), f.ChunkOptions(overrides...)...)
}

// CreateSimpleChunkStep is CreateChunkStep without a transform stage.
func CreateSimpleChunkStep[T any](
	f StepFactory,
	name string,
	reader port.ItemReader[T],
	writer port.ItemWriter[T],
	overrides ...itemstep.ChunkOption,
) (port.Step, error) {
	return itemstep.NewSimpleChunkStep[T](name, reader, writer, f.ChunkSize(), f.ChunkOptions(overrides...)...)
}

// CreateChunkStepWithFactories constructs a chunk step that builds a fresh reader
// and writer for each execution.
func CreateChunkStepWithFactories[I, O any](
	f StepFactory,
	name string,
	newReader itemstep.ReaderFactory[I],
	processor port.ItemProcessor[I, O],
	newWriter itemstep.WriterFactory[O],
	overrides ...itemstep.ChunkOption,
) (port.Step, error) {
	return itemstep.NewChunkStepWithFactories[I, O](name, newReader, processor, newWriter, f.ChunkSize(), f.ChunkOptions(overrides...)...)
}

// CreateSimpleChunkStepWithFactories is CreateChunkStepWithFactories without a transform stage.
func CreateSimpleChunkStepWithFactories[T any](
	f StepFactory,
	name string,
	newReader itemstep.ReaderFactory[T],
	newWriter itemstep.WriterFactory[T],
	overrides ...itemstep.ChunkOption,
) (port.Step, error) {
	return itemstep.NewSimpleChunkStepWithFactories[T](name, newReader, newWriter, f.ChunkSize(), f.ChunkOptions(overrides...)...)
}
