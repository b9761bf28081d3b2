// Package repository selects the JobRepository implementation from configuration.
package repository

import (
	"context"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// NewJobRepository returns the repository named by surfbatch.repository.type.
func NewJobRepository(cfg *config.Config, provider *gormadapter.Provider) (repository.JobRepository, error) {
	rc := cfg.Surfbatch.Repository
	switch rc.Type {
	case "inmemory", "":
		return inmemory.NewInMemoryJobRepository(), nil
	case "sql":
		return sqlrepo.NewFromProvider(context.Background(), provider, cfg.Surfbatch.Datasources, rc.DatasourceRef, rc.AutoMigrate)
	default:
		return nil, exception.NewBatchErrorf("job_repository", "unknown repository type '%s'", rc.Type)
	}
}

// Module provides the configured repository.JobRepository. It needs a
// *gormadapter.Provider, see gormadapter.Module.
var Module = fx.Provide(NewJobRepository)
