package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	executor "github.com/tigerroll/surfbatch/pkg/batch/engine/step/executor"
	inmemory "github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository/inmemory"
)

type funcStep struct {
	name string
	fn   func(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Execute(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error {
	return s.fn(ctx, je, se)
}

type MockStepListener struct{ mock.Mock }

func (m *MockStepListener) BeforeStep(ctx context.Context, se *model.StepExecution) { m.Called(se.StepName) }
func (m *MockStepListener) AfterStep(ctx context.Context, se *model.StepExecution) {
	m.Called(se.StepName, se.Status)
}

func setup(t *testing.T) (*inmemory.InMemoryJobRepository, *model.JobExecution, *model.StepExecution) {
	t.Helper()
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	instance, err := repo.FindOrCreateJobInstance(ctx, "job", model.NewJobParameters().WithString("uuid", model.NewID()))
	require.NoError(t, err)
	je, err := repo.CreateJobExecution(ctx, instance)
	require.NoError(t, err)
	se := model.NewStepExecution("step1", je)
	je.AddStepExecution(se)
	return repo, je, se
}

func TestExecuteStep_Completed(t *testing.T) {
	repo, je, se := setup(t)
	listener := new(MockStepListener)
	listener.On("BeforeStep", "step1").Once()
	listener.On("AfterStep", "step1", model.StatusCompleted).Once()

	step := &funcStep{name: "step1", fn: func(ctx context.Context, _ *model.JobExecution, se *model.StepExecution) error {
		assert.Equal(t, model.StatusStarted, se.Status)
		se.ReadCount = 3
		return nil
	}}

	err := executor.NewSimpleStepExecutor(repo, nil, nil, listener).ExecuteStep(context.Background(), step, je, se)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)
	listener.AssertExpectations(t)

	stored, err := repo.FindStepExecutionsByJobExecutionID(context.Background(), je.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.StatusCompleted, stored[0].Status)
	assert.Equal(t, int64(3), stored[0].ReadCount)
}

func TestExecuteStep_Failed(t *testing.T) {
	repo, je, se := setup(t)
	boom := errors.New("boom")
	step := &funcStep{name: "step1", fn: func(context.Context, *model.JobExecution, *model.StepExecution) error { return boom }}

	err := executor.NewSimpleStepExecutor(repo, nil, nil).ExecuteStep(context.Background(), step, je, se)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, model.StatusFailed, se.Status)
	assert.Equal(t, "boom", se.ExitDescription)
	assert.Contains(t, se.Failures, "boom")
}

func TestExecuteStep_PanicFailsStep(t *testing.T) {
	repo, je, se := setup(t)
	step := &funcStep{name: "step1", fn: func(context.Context, *model.JobExecution, *model.StepExecution) error { panic("nil map") }}

	err := executor.NewSimpleStepExecutor(repo, nil, nil).ExecuteStep(context.Background(), step, je, se)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
	assert.Equal(t, model.StatusFailed, se.Status)
}

func TestExecuteStep_StoppedByStep(t *testing.T) {
	repo, je, se := setup(t)
	step := &funcStep{name: "step1", fn: func(_ context.Context, _ *model.JobExecution, se *model.StepExecution) error {
		return se.MarkAsStopped()
	}}

	err := executor.NewSimpleStepExecutor(repo, nil, nil).ExecuteStep(context.Background(), step, je, se)
	require.NoError(t, err)
	assert.Equal(t, model.StatusStopped, se.Status)

	stored, err := repo.FindStepExecutionsByJobExecutionID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusStopped, stored[0].Status)
}

func TestExecuteStep_RejectsNonStartingExecution(t *testing.T) {
	repo, je, se := setup(t)
	require.NoError(t, se.MarkAsStarted())
	called := false
	step := &funcStep{name: "step1", fn: func(context.Context, *model.JobExecution, *model.StepExecution) error {
		called = true
		return nil
	}}

	err := executor.NewSimpleStepExecutor(repo, nil, nil).ExecuteStep(context.Background(), step, je, se)
	assert.ErrorIs(t, err, model.ErrInvalidStatusTransition)
	assert.False(t, called)
}
