package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	batchrepo "github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository"
	"github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository/sql"
)

func TestNewJobRepository_DefaultsToInMemory(t *testing.T) {
	repo, err := batchrepo.NewJobRepository(config.NewConfig(), gormadapter.NewProvider(nil))
	require.NoError(t, err)
	assert.IsType(t, &inmemory.InMemoryJobRepository{}, repo)
}

func TestNewJobRepository_SQLWithAutoMigrate(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Surfbatch.Repository.Type = "sql"
	cfg.Surfbatch.Repository.AutoMigrate = true
	cfg.Surfbatch.Datasources = dbconfig.DatasourcesConfig{
		"metadata": {Type: "sqlite", Database: filepath.Join(t.TempDir(), "metadata.db")},
	}
	provider := gormadapter.NewProvider(cfg.Surfbatch.Datasources)
	t.Cleanup(func() { _ = provider.CloseAll() })

	repo, err := batchrepo.NewJobRepository(cfg, provider)
	require.NoError(t, err)
	require.IsType(t, &sqlrepo.SQLJobRepository{}, repo)

	instance, err := repo.FindOrCreateJobInstance(context.Background(), "job", model.NewJobParameters().WithString("run.id", "1"))
	require.NoError(t, err)
	assert.Equal(t, "job", instance.JobName)
}

func TestNewJobRepository_Errors(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Surfbatch.Repository.Type = "sql"
	cfg.Surfbatch.Repository.DatasourceRef = "missing"
	_, err := batchrepo.NewJobRepository(cfg, gormadapter.NewProvider(nil))
	assert.Error(t, err)

	cfg.Surfbatch.Repository.Type = "cassandra"
	_, err = batchrepo.NewJobRepository(cfg, gormadapter.NewProvider(nil))
	assert.Error(t, err)
}
