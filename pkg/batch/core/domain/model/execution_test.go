package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

func newExecution() *model.JobExecution {
	instance := model.NewJobInstance("job", model.NewJobParameters().WithString("uuid", "u"))
	return model.NewJobExecution(instance)
}

func TestJobExecution_Lifecycle(t *testing.T) {
	je := newExecution()
	assert.Equal(t, model.StatusStarting, je.Status)

	require.NoError(t, je.MarkAsStarted())
	require.NotNil(t, je.StartTime)
	assert.Equal(t, model.ExitStatusExecuting, je.ExitStatus)

	require.NoError(t, je.MarkAsCompleted())
	require.NotNil(t, je.EndTime)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
}

func TestJobExecution_TerminalStatusIsFinal(t *testing.T) {
	je := newExecution()
	require.NoError(t, je.MarkAsStarted())
	require.NoError(t, je.MarkAsFailed(errors.New("boom")))

	for _, mark := range []func() error{
		je.MarkAsCompleted,
		je.MarkAsStopped,
		func() error { return je.MarkAsFailed(errors.New("again")) },
		func() error { return je.TransitionTo(model.StatusStarted) },
	} {
		err := mark()
		assert.ErrorIs(t, err, model.ErrInvalidStatusTransition)
	}
	assert.Equal(t, model.StatusFailed, je.Status)
	assert.Equal(t, model.FailureList{"boom"}, je.Failures)
}

func TestJobExecution_CannotSkipStarted(t *testing.T) {
	je := newExecution()
	assert.ErrorIs(t, je.MarkAsCompleted(), model.ErrInvalidStatusTransition)
	assert.Equal(t, model.StatusStarting, je.Status)
}

func TestJobExecution_FailuresAreDeduplicated(t *testing.T) {
	je := newExecution()
	je.AddFailureException(errors.New("x"))
	je.AddFailureException(errors.New("x"))
	je.AddFailureException(nil)

	assert.Len(t, je.Failures, 1)
	assert.Len(t, je.FailureExceptions(), 1)
}

func TestJobExecution_CloneIsIndependent(t *testing.T) {
	je := newExecution()
	se := model.NewStepExecution("step1", je)
	je.AddStepExecution(se)
	je.RequestStop()

	c := je.Clone()
	c.StepExecutions[0].ReadCount = 10
	c.Failures = append(c.Failures, "only in clone")

	assert.Equal(t, int64(0), se.ReadCount)
	assert.Empty(t, je.Failures)
	assert.True(t, c.IsStopRequested())
	assert.Same(t, c, c.StepExecutions[0].JobExecution)
}

func TestStepExecution_CompletedWithSkips(t *testing.T) {
	se := model.NewStepExecution("step1", newExecution())
	require.NoError(t, se.MarkAsStarted())
	se.WriteSkipCount = 2

	require.NoError(t, se.MarkAsCompleted())
	assert.Equal(t, model.ExitStatusCompletedWithSkips, se.ExitStatus)
}

func TestStepExecution_FailedRecordsExitDescription(t *testing.T) {
	se := model.NewStepExecution("step1", newExecution())
	require.NoError(t, se.MarkAsStarted())
	require.NoError(t, se.MarkAsFailed(errors.New("sink unavailable")))

	assert.Equal(t, "sink unavailable", se.ExitDescription)
	assert.ErrorIs(t, se.MarkAsStopped(), model.ErrInvalidStatusTransition)
}

func TestStepExecution_ParametersFromOwner(t *testing.T) {
	je := newExecution()
	se := model.NewStepExecution("step1", je)
	v, ok := se.Parameters().GetString("uuid")
	require.True(t, ok)
	assert.Equal(t, "u", v)
}

func TestParseJobStatus(t *testing.T) {
	s, err := model.ParseJobStatus("STOPPED")
	require.NoError(t, err)
	assert.True(t, s.IsFinished())

	_, err = model.ParseJobStatus("ABANDONED")
	assert.Error(t, err)
}
