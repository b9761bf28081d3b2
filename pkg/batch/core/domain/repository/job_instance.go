package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// ErrJobInstanceNotFound is returned when a JobInstance is not found.
var ErrJobInstanceNotFound = errors.New("job instance not found")

func init() {
	exception.RegisterErrorType("ErrJobInstanceNotFound", ErrJobInstanceNotFound)
}

// JobInstance defines operations on job instance metadata.
type JobInstance interface {
	// FindOrCreateJobInstance returns the instance identified by (jobName, identifying params),
	// creating it on first use. Concurrent callers with equal parameters get the same instance.
	FindOrCreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)

	// FindJobInstanceByID returns ErrJobInstanceNotFound when id is unknown.
	FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error)

	// FindJobInstanceByJobNameAndParameters returns ErrJobInstanceNotFound when no instance matches.
	FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)

	// GetJobInstanceCount returns the number of instances of jobName.
	GetJobInstanceCount(ctx context.Context, jobName string) (int, error)

	// GetJobNames returns the distinct job names, sorted.
	GetJobNames(ctx context.Context) ([]string, error)
}
