// Package app assembles the batch framework and the job catalogue into one fx
// application and runs jobs in it.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	appjob "github.com/tigerroll/surfbatch/internal/app/job"
	"github.com/tigerroll/surfbatch/internal/app/resources"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm/sqlite"
	storage "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage"
	"github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/local"
	usecase "github.com/tigerroll/surfbatch/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	jobRunner "github.com/tigerroll/surfbatch/pkg/batch/core/job/runner"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/executor"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/factory"
	metricsinfra "github.com/tigerroll/surfbatch/pkg/batch/infrastructure/metrics"
	repository "github.com/tigerroll/surfbatch/pkg/batch/infrastructure/repository"
	"github.com/tigerroll/surfbatch/pkg/batch/listener/logging"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// ShutdownTimeout bounds the fx OnStop hooks: metric export and connection close.
const ShutdownTimeout = 30 * time.Second

// LoadConfig loads the embedded configuration, then files, then the environment.
func LoadConfig(envFilePath string, files ...string) (*config.Config, error) {
	return config.Load(envFilePath, config.EmbeddedConfig(resources.ApplicationYAML), files...)
}

// Options returns the fx options of the whole application for cfg. extra is
// appended, so tests can supply or decorate components.
func Options(cfg *config.Config, extra ...fx.Option) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(logger.NewFxLoggerAdapter),

		config.Module,
		metricsinfra.Module,
		gormadapter.Module,
		storage.Module,
		local.Module,
		gcs.Module,
		repository.Module,
		logging.Module,
		executor.Module,
		jobRunner.Module,
		factory.Module,
		usecase.Module,
		appjob.Module,

		fx.Options(extra...),
	)
}

// Application is a started fx application exposing the use cases.
type Application struct {
	app        *fx.App
	Launcher   usecase.JobLauncher
	Operator   usecase.JobOperator
	Explorer   usecase.JobExplorer
	Jobs       *usecase.JobRegistry
	Executions *usecase.ExecutionRegistry
}

// Start builds and starts the application.
func Start(ctx context.Context, cfg *config.Config, extra ...fx.Option) (*Application, error) {
	a := &Application{}
	a.app = fx.New(
		Options(cfg, extra...),
		fx.Populate(&a.Launcher, &a.Operator, &a.Explorer, &a.Jobs, &a.Executions),
	)
	if err := a.app.Err(); err != nil {
		return nil, err
	}
	if err := a.app.Start(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Stop runs the OnStop hooks.
func (a *Application) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return a.app.Stop(ctx)
}

// RunJob launches jobName once. Cancelling ctx does not abort the job; it requests
// a stop, which the job honors at its next chunk or step boundary.
func (a *Application) RunJob(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			n := a.Executions.StopAll()
			logger.Warnf("Stop requested for %d running execution(s).", n)
		case <-done:
		}
	}()
	return a.Launcher.Launch(context.WithoutCancel(ctx), jobName, params)
}
