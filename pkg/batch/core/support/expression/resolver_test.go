package expression_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/core/support/expression"
)

func stepContext() context.Context {
	params := model.NewJobParameters().WithString("input.file", "data/movies.csv")
	je := model.NewJobExecution(model.NewJobInstance("importJob", params))
	se := model.NewStepExecution("load", je)
	return port.WithStepExecution(context.Background(), se)
}

func TestResolve(t *testing.T) {
	ctx := stepContext()

	got, err := expression.Resolve(ctx, "#{jobParameters['input.file']}")
	require.NoError(t, err)
	assert.Equal(t, "data/movies.csv", got)

	got, err = expression.Resolve(ctx, "out/#{jobExecution.jobName}-#{stepExecution.stepName}.parquet")
	require.NoError(t, err)
	assert.Equal(t, "out/importJob-load.parquet", got)

	got, err = expression.Resolve(ctx, "plain/path.csv")
	require.NoError(t, err)
	assert.Equal(t, "plain/path.csv", got)
}

func TestResolve_Errors(t *testing.T) {
	_, err := expression.Resolve(stepContext(), "#{jobParameters['missing']}")
	assert.Error(t, err)

	_, err = expression.Resolve(stepContext(), "#{systemProperties['x']}")
	assert.Error(t, err)

	_, err = expression.Resolve(context.Background(), "#{jobExecution.id}")
	assert.Error(t, err)
}
