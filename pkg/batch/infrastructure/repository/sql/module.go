package sql

import (
	"context"
	"fmt"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/surfbatch/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// NewFromProvider opens the datasource named datasourceRef through provider and
// returns a repository on it. When autoMigrate is set the repository schema is
// brought up to date first.
func NewFromProvider(ctx context.Context, provider *gormadapter.Provider, datasources dbconfig.DatasourcesConfig, datasourceRef string, autoMigrate bool) (*SQLJobRepository, error) {
	dbCfg, ok := datasources[datasourceRef]
	if !ok {
		return nil, exception.NewBatchErrorf("job_repository", "datasource '%s' is not configured", datasourceRef)
	}
	if autoMigrate {
		if err := MigrateSchema(ctx, dbCfg); err != nil {
			return nil, err
		}
	}

	conn, err := provider.GetConnection(ctx, datasourceRef)
	if err != nil {
		return nil, exception.NewBatchError("job_repository", fmt.Sprintf("failed to open datasource '%s'", datasourceRef), err, false, false)
	}
	gormConn, ok := conn.(GormConnection)
	if !ok {
		return nil, exception.NewBatchErrorf("job_repository", "datasource '%s' is not a GORM connection", datasourceRef)
	}
	logger.Infof("JobRepository: using '%s' datasource '%s'.", dbCfg.Type, datasourceRef)
	return NewSQLJobRepository(gormConn), nil
}

// MigrateSchema applies the repository migrations for the database type of dbCfg.
func MigrateSchema(ctx context.Context, dbCfg dbconfig.DatabaseConfig) error {
	migrator := migration.NewMigrator(dbCfg)
	if err := migrator.Up(ctx, Migrations(), migrator.DBType(), migration.FrameworkMigrationsTable); err != nil {
		return exception.NewBatchError("job_repository", "failed to migrate the job repository schema", err, false, false)
	}
	return nil
}
