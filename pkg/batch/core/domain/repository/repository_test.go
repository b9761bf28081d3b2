package repository_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

func TestCheckExecutionAllowed(t *testing.T) {
	instance := model.NewJobInstance("job", model.NewJobParameters().WithString("uuid", "u"))

	assert.NoError(t, repository.CheckExecutionAllowed(instance, nil))

	running := model.NewJobExecution(instance)
	var alreadyRunning *exception.JobExecutionAlreadyRunningError
	require.True(t, errors.As(repository.CheckExecutionAllowed(instance, running), &alreadyRunning))
	assert.Equal(t, "STARTING", alreadyRunning.Status)

	require.NoError(t, running.MarkAsStarted())
	require.NoError(t, running.MarkAsCompleted())
	var dup *exception.DuplicateRunError
	require.True(t, errors.As(repository.CheckExecutionAllowed(instance, running), &dup))
	assert.Equal(t, instance.ID, dup.InstanceID)

	failed := model.NewJobExecution(instance)
	require.NoError(t, failed.MarkAsStarted())
	require.NoError(t, failed.MarkAsFailed(errors.New("x")))
	assert.NoError(t, repository.CheckExecutionAllowed(instance, failed))
}
