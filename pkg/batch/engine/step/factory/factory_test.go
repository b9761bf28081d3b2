package factory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfbatch/pkg/batch/component/step/reader"
	"github.com/tigerroll/surfbatch/pkg/batch/component/step/writer"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/factory"
	itemstep "github.com/tigerroll/surfbatch/pkg/batch/engine/step/item"
)

func newFactory(t *testing.T, mutate func(*config.Config)) *factory.DefaultStepFactory {
	t.Helper()
	cfg := config.NewConfig()
	if mutate != nil {
		mutate(cfg)
	}
	f, err := factory.NewDefaultStepFactory(factory.DefaultStepFactoryParams{Config: cfg})
	require.NoError(t, err)
	return f
}

func TestDefaultStepFactory_ChunkStepUsesConfiguredDefaults(t *testing.T) {
	f := newFactory(t, func(cfg *config.Config) {
		cfg.Surfbatch.Batch.ChunkSize = 3
		cfg.Surfbatch.Batch.FailurePolicy = "SKIP_CHUNK"
	})

	step, err := factory.CreateSimpleChunkStep[int](f, "copy", reader.NewListItemReader([]int{1, 2, 3, 4}), writer.NewListItemWriter[int]())
	require.NoError(t, err)

	chunk, ok := step.(*itemstep.ChunkStep[int, int])
	require.True(t, ok)
	assert.Equal(t, 3, chunk.ChunkSize())
	assert.Equal(t, itemstep.FailurePolicySkipChunk, chunk.FailurePolicy())
}

func TestDefaultStepFactory_OverridesWin(t *testing.T) {
	f := newFactory(t, func(cfg *config.Config) { cfg.Surfbatch.Batch.FailurePolicy = "SKIP_CHUNK" })

	step, err := factory.CreateSimpleChunkStep[int](f, "copy", reader.NewListItemReader([]int{1}), writer.NewListItemWriter[int](),
		itemstep.WithFailurePolicy(itemstep.FailurePolicyAbortStep))
	require.NoError(t, err)
	assert.Equal(t, itemstep.FailurePolicyAbortStep, step.(*itemstep.ChunkStep[int, int]).FailurePolicy())
}

func TestDefaultStepFactory_ChunkStepWithFactoriesBuildsPerExecution(t *testing.T) {
	f := newFactory(t, func(cfg *config.Config) { cfg.Surfbatch.Batch.ChunkSize = 2 })
	built := 0
	step, err := factory.CreateSimpleChunkStepWithFactories[int](f, "copy",
		func() (port.ItemReader[int], error) {
			built++
			return reader.NewListItemReader([]int{1, 2, 3}), nil
		},
		func() (port.ItemWriter[int], error) { return writer.NewListItemWriter[int](), nil })
	require.NoError(t, err)
	assert.Equal(t, 2, step.(*itemstep.ChunkStep[int, int]).ChunkSize())

	for i := 0; i < 2; i++ {
		je := model.NewJobExecution(model.NewJobInstance("job", model.NewJobParameters()))
		require.NoError(t, je.MarkAsStarted())
		se := model.NewStepExecution("copy", je)
		require.NoError(t, se.MarkAsStarted())
		require.NoError(t, step.Execute(context.Background(), je, se))
		assert.Equal(t, int64(3), se.WriteCount)
	}
	assert.Equal(t, 2, built)
}

func TestDefaultStepFactory_TaskletStep(t *testing.T) {
	f := newFactory(t, nil)
	calls := 0
	step, err := f.CreateTaskletStep("hello", port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
		calls++
		return port.RepeatStatusFinished, nil
	}))
	require.NoError(t, err)

	je := model.NewJobExecution(model.NewJobInstance("job", model.NewJobParameters()))
	se := model.NewStepExecution("hello", je)
	require.NoError(t, se.MarkAsStarted())
	require.NoError(t, step.Execute(context.Background(), je, se))
	assert.Equal(t, 1, calls)
}

func TestNewDefaultStepFactory_RejectsUnknownPolicy(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Surfbatch.Batch.FailurePolicy = "RETRY"
	_, err := factory.NewDefaultStepFactory(factory.DefaultStepFactoryParams{Config: cfg})
	assert.Error(t, err)
}
