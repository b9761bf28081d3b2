package tasklet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/retry"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	batchtest "github.com/tigerroll/surfbatch/pkg/batch/test"
)

type MockTasklet struct{ mock.Mock }

func (m *MockTasklet) Execute(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
	args := m.Called(ctx, se)
	return args.Get(0).(port.RepeatStatus), args.Error(1)
}

func newRun(t *testing.T, params model.JobParameters) (*model.JobExecution, *model.StepExecution) {
	return batchtest.NewRunningStep(t, "job", "step1", params)
}

func TestTaskletStep_RepeatsUntilFinished(t *testing.T) {
	m := &MockTasklet{}
	m.On("Execute", mock.Anything, mock.Anything).Return(port.RepeatStatusContinuable, nil).Twice()
	m.On("Execute", mock.Anything, mock.Anything).Return(port.RepeatStatusFinished, nil).Once()

	step, err := tasklet.NewTaskletStep("step1", m)
	require.NoError(t, err)

	je, se := newRun(t, model.NewJobParameters())
	require.NoError(t, step.Execute(context.Background(), je, se))
	m.AssertNumberOfCalls(t, "Execute", 3)
}

func TestTaskletStep_ReceivesRunParameters(t *testing.T) {
	var seen string
	step, err := tasklet.NewTaskletStep("step1", port.TaskletFunc(func(_ context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
		seen, _ = se.Parameters().GetString("uuid")
		return port.RepeatStatusFinished, nil
	}))
	require.NoError(t, err)

	je, se := newRun(t, model.NewJobParameters().WithString("uuid", "1234"))
	require.NoError(t, step.Execute(context.Background(), je, se))
	assert.Equal(t, "1234", seen)
}

func TestTaskletStep_ErrorBecomesTaskletError(t *testing.T) {
	cause := errors.New("remote call failed")
	m := &MockTasklet{}
	m.On("Execute", mock.Anything, mock.Anything).Return(port.RepeatStatusContinuable, nil).Once()
	m.On("Execute", mock.Anything, mock.Anything).Return(port.RepeatStatusContinuable, cause).Once()

	step, err := tasklet.NewTaskletStep("step1", m)
	require.NoError(t, err)

	je, se := newRun(t, model.NewJobParameters())
	err = step.Execute(context.Background(), je, se)

	var terr *exception.TaskletError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 2, terr.Invocation)
	assert.ErrorIs(t, err, cause)
	m.AssertNumberOfCalls(t, "Execute", 2)
}

func TestTaskletStep_PanicBecomesTaskletError(t *testing.T) {
	step, err := tasklet.NewTaskletStep("step1", port.TaskletFunc(func(context.Context, *model.StepExecution) (port.RepeatStatus, error) {
		panic("nil map")
	}))
	require.NoError(t, err)

	je, se := newRun(t, model.NewJobParameters())
	err = step.Execute(context.Background(), je, se)

	var terr *exception.TaskletError
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, err.Error(), "nil map")
}

func TestTaskletStep_StopBetweenInvocations(t *testing.T) {
	calls := 0
	var je *model.JobExecution
	step, err := tasklet.NewTaskletStep("step1", port.TaskletFunc(func(context.Context, *model.StepExecution) (port.RepeatStatus, error) {
		calls++
		je.RequestStop()
		return port.RepeatStatusContinuable, nil
	}))
	require.NoError(t, err)

	var se *model.StepExecution
	je, se = newRun(t, model.NewJobParameters())
	require.NoError(t, step.Execute(context.Background(), je, se))
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.StatusStopped, se.Status)
}

func TestNewTaskletStep_Validation(t *testing.T) {
	_, err := tasklet.NewTaskletStep("step1", nil)
	assert.ErrorIs(t, err, exception.ErrInvalidDefinition)
}

func TestTaskletStep_RetriesRetryableFailures(t *testing.T) {
	transient := exception.NewBatchError("remote", "timeout", errors.New("i/o timeout"), false, true)
	m := &MockTasklet{}
	m.On("Execute", mock.Anything, mock.Anything).Return(port.RepeatStatusFinished, transient).Twice()
	m.On("Execute", mock.Anything, mock.Anything).Return(port.RepeatStatusFinished, nil).Once()

	step, err := tasklet.NewTaskletStep("step1", m, tasklet.WithRetryPolicy(retry.NewSimpleRetryPolicy(3, time.Millisecond, 2*time.Millisecond)))
	require.NoError(t, err)

	je, se := newRun(t, model.NewJobParameters())
	require.NoError(t, step.Execute(context.Background(), je, se))
	m.AssertNumberOfCalls(t, "Execute", 3)
}

func TestTaskletStep_DoesNotRetryPermanentFailures(t *testing.T) {
	m := &MockTasklet{}
	m.On("Execute", mock.Anything, mock.Anything).Return(port.RepeatStatusFinished, errors.New("bad input"))

	step, err := tasklet.NewTaskletStep("step1", m, tasklet.WithRetryPolicy(retry.NewSimpleRetryPolicy(5, 0, 0)))
	require.NoError(t, err)

	je, se := newRun(t, model.NewJobParameters())
	assert.Error(t, step.Execute(context.Background(), je, se))
	m.AssertNumberOfCalls(t, "Execute", 1)
}
