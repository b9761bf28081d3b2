package repository

import (
	"context"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

// StepExecution defines operations on step execution metadata.
type StepExecution interface {
	// SaveStepExecution inserts or updates stepExecution and increments its Version.
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	// FindStepExecutionsByJobExecutionID returns the step executions in creation order.
	FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error)
}
