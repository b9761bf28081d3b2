package sql_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/surfbatch/pkg/batch/component/tasklet/migration"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

func newRepository(t *testing.T) *sqlrepo.SQLJobRepository {
	t.Helper()
	ctx := context.Background()
	cfg := dbconfig.DatabaseConfig{Type: "sqlite", Database: filepath.Join(t.TempDir(), "metadata.db")}

	require.NoError(t, migration.NewMigrator(cfg).Up(ctx, sqlrepo.Migrations(), "sqlite", migration.FrameworkMigrationsTable))

	provider := gormadapter.NewProvider(dbconfig.DatasourcesConfig{"metadata": cfg})
	t.Cleanup(func() { _ = provider.CloseAll() })
	conn, err := provider.GetConnection(ctx, "metadata")
	require.NoError(t, err)
	return sqlrepo.NewSQLJobRepository(conn.(*gormadapter.GormDBAdapter))
}

func TestSQLJobRepository_FindOrCreateJobInstance(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	a, err := repo.FindOrCreateJobInstance(ctx, "job", model.NewJobParameters().WithDate("run.date", day))
	require.NoError(t, err)
	b, err := repo.FindOrCreateJobInstance(ctx, "job", model.NewJobParameters().WithDate("run.date", day.Add(5*time.Hour)))
	require.NoError(t, err)
	c, err := repo.FindOrCreateJobInstance(ctx, "job", model.NewJobParameters().WithDate("run.date", day.AddDate(0, 0, 1)))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID, "same calendar day is the same instance")
	assert.NotEqual(t, a.ID, c.ID)

	loaded, err := repo.FindJobInstanceByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, a.Parameters.Equal(loaded.Parameters))
	assert.Equal(t, a.ParametersHash, loaded.ParametersHash)

	count, err := repo.GetJobInstanceCount(ctx, "job")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	names, err := repo.GetJobNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"job"}, names)

	_, err = repo.FindJobInstanceByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobInstanceNotFound)
}

func TestSQLJobRepository_ExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	instance, err := repo.FindOrCreateJobInstance(ctx, "job", model.NewJobParameters().WithString("uuid", "u-1"))
	require.NoError(t, err)

	_, err = repo.FindLatestJobExecution(ctx, instance)
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)

	je, err := repo.CreateJobExecution(ctx, instance)
	require.NoError(t, err)

	_, err = repo.CreateJobExecution(ctx, instance)
	var running *exception.JobExecutionAlreadyRunningError
	require.True(t, errors.As(err, &running), "got %v", err)

	require.NoError(t, je.MarkAsStarted())
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	se := model.NewStepExecution("step1", je)
	je.AddStepExecution(se)
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	require.NoError(t, se.MarkAsStarted())
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	se.ReadCount, se.WriteCount, se.CommitCount, se.RollbackCount = 5, 3, 2, 1
	require.NoError(t, se.MarkAsFailed(errors.New("write failed")))
	require.NoError(t, repo.SaveStepExecution(ctx, se))

	require.NoError(t, je.MarkAsFailed(errors.New("step1 failed")))
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	loaded, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, loaded.Status)
	assert.Equal(t, model.ExitStatusFailed, loaded.ExitStatus)
	assert.Equal(t, model.FailureList{"step1 failed"}, loaded.Failures)
	require.NotNil(t, loaded.StartTime)
	require.NotNil(t, loaded.EndTime)
	require.Len(t, loaded.StepExecutions, 1)
	step := loaded.StepExecutions[0]
	assert.Equal(t, model.StatusFailed, step.Status)
	assert.Equal(t, int64(2), step.CommitCount)
	assert.Equal(t, int64(1), step.RollbackCount)
	assert.Equal(t, "write failed", step.ExitDescription)

	second, err := repo.CreateJobExecution(ctx, instance)
	require.NoError(t, err, "a FAILED instance may be relaunched")
	require.NoError(t, second.MarkAsStarted())
	require.NoError(t, repo.SaveJobExecution(ctx, second))
	require.NoError(t, second.MarkAsCompleted())
	require.NoError(t, repo.SaveJobExecution(ctx, second))

	_, err = repo.CreateJobExecution(ctx, instance)
	var dup *exception.DuplicateRunError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, second.ID, dup.ExecutionID)

	latest, err := repo.FindLatestJobExecution(ctx, instance)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	all, err := repo.FindJobExecutionsByJobInstance(ctx, instance)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, je.ID, all[1].ID)
}

func TestSQLJobRepository_StaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	instance, err := repo.FindOrCreateJobInstance(ctx, "job", model.NewJobParameters())
	require.NoError(t, err)
	je, err := repo.CreateJobExecution(ctx, instance)
	require.NoError(t, err)
	stale, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)

	require.NoError(t, je.MarkAsStarted())
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	require.NoError(t, stale.MarkAsStarted())
	err = repo.SaveJobExecution(ctx, stale)
	assert.True(t, exception.IsOptimisticLockingFailure(err), "got %v", err)

	orphan := model.NewStepExecution("step", nil)
	orphan.JobExecutionID = "missing"
	assert.ErrorIs(t, repo.SaveStepExecution(ctx, orphan), repository.ErrJobExecutionNotFound)
}

func TestSQLJobRepository_ConcurrentLaunchesCreateOne(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	params := model.NewJobParameters().WithString("file", "same.csv")

	const launches = 8
	var wg sync.WaitGroup
	results := make(chan error, launches)
	for i := 0; i < launches; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			instance, err := repo.FindOrCreateJobInstance(ctx, "job", params)
			if err != nil {
				results <- err
				return
			}
			_, err = repo.CreateJobExecution(ctx, instance)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
			continue
		}
		var running *exception.JobExecutionAlreadyRunningError
		assert.True(t, errors.As(err, &running), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	count, err := repo.GetJobInstanceCount(ctx, "job")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
