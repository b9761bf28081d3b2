// Package test provides fixtures shared by the tests of the batch packages.
package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

// NewRunningStep creates a STARTED JobExecution of jobName holding one STARTED
// StepExecution named stepName.
func NewRunningStep(t testing.TB, jobName, stepName string, params model.JobParameters) (*model.JobExecution, *model.StepExecution) {
	t.Helper()
	je := model.NewJobExecution(model.NewJobInstance(jobName, params))
	require.NoError(t, je.MarkAsStarted())
	se := model.NewStepExecution(stepName, je)
	je.AddStepExecution(se)
	require.NoError(t, se.MarkAsStarted())
	return je, se
}

// StepContext returns a context carrying se, as the step executor provides it to
// readers, writers and tasklets.
func StepContext(se *model.StepExecution) context.Context {
	return port.WithStepExecution(context.Background(), se)
}
