package job

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/surfbatch/internal/app/resources"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	storage "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage"
	"github.com/tigerroll/surfbatch/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	"github.com/tigerroll/surfbatch/pkg/batch/core/support/incrementer"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/factory"
	"github.com/tigerroll/surfbatch/pkg/batch/listener/logging"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// CatalogueParams defines the dependencies for NewJobCatalogue.
type CatalogueParams struct {
	fx.In
	Config      *config.Config
	Factory     factory.StepFactory
	Databases   *gormadapter.Provider
	Storage     *storage.Provider
	JobListener *logging.LoggingJobListener
	// Out receives the output of the hello job; nil means stdout.
	Out io.Writer `name:"jobOutput" optional:"true"`
}

// NewJobCatalogue builds every job of the application. importJob and exportJob are
// included only when their datasource is configured.
func NewJobCatalogue(p CatalogueParams) ([]port.Job, error) {
	ctx := context.Background()
	cfg := p.Config
	listener := port.JobExecutionListener(p.JobListener)

	hello, err := NewHelloJob(p.Factory, cfg.JobProperties(HelloJobName), p.Out, listener)
	if err != nil {
		return nil, err
	}
	flaky, err := NewFlakyJob(p.Factory, cfg.JobProperties(FlakyJobName), listener)
	if err != nil {
		return nil, err
	}
	jobs := []port.Job{hello, flaky}

	importProps, err := BindImportJobProperties(cfg.JobProperties(ImportJobName))
	if err != nil {
		return nil, err
	}
	if dbCfg, ok := cfg.Surfbatch.Datasources[importProps.DatasourceRef]; ok {
		txManager, err := p.Databases.TransactionManager(ctx, importProps.DatasourceRef)
		if err != nil {
			return nil, exception.NewBatchError(ImportJobName, "failed to open datasource '"+importProps.DatasourceRef+"'", err, false, false)
		}
		inc, err := runIdentity(importProps.Incrementer, RunDateKey, cfg.Location())
		if err != nil {
			return nil, exception.NewInvalidDefinition(ImportJobName, "%v", err)
		}
		importJob, err := NewImportJob(p.Factory, importProps, migration.NewMigrator(dbCfg), resources.Migrations(), txManager, inc, listener)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, importJob)
	} else {
		logger.Debugf("Job '%s' is not registered: datasource '%s' is not configured.", ImportJobName, importProps.DatasourceRef)
	}

	exportProps, err := BindExportJobProperties(cfg.JobProperties(ExportJobName))
	if err != nil {
		return nil, err
	}
	if _, ok := cfg.Surfbatch.Datasources[exportProps.DatasourceRef]; ok {
		conn, err := p.Databases.GetConnection(ctx, exportProps.DatasourceRef)
		if err != nil {
			return nil, exception.NewBatchError(ExportJobName, "failed to open datasource '"+exportProps.DatasourceRef+"'", err, false, false)
		}
		db, err := conn.GetSQLDB()
		if err != nil {
			return nil, exception.NewBatchError(ExportJobName, "failed to get sql.DB", err, false, false)
		}
		exportJob, err := NewExportJob(p.Factory, exportProps, db, p.Storage, incrementer.NewTimestampIncrementer(RunTimestampKey, nil), listener)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, exportJob)
	} else {
		logger.Debugf("Job '%s' is not registered: datasource '%s' is not configured.", ExportJobName, exportProps.DatasourceRef)
	}
	return jobs, nil
}

// runIdentity builds the named incrementer. Dates are taken in loc.
func runIdentity(name, key string, loc *time.Location) (port.JobParametersIncrementer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "daily", "date":
		return incrementer.NewDailyIncrementer(key, func() time.Time { return time.Now().In(loc) }), nil
	}
	return incrementer.ByName(name, key)
}

// Module contributes the catalogue to the "batch_jobs" group.
var Module = fx.Provide(fx.Annotate(
	NewJobCatalogue,
	fx.ResultTags(`group:"batch_jobs,flatten"`),
))
