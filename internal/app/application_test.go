package app_test

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/tigerroll/surfbatch/internal/app"
	appjob "github.com/tigerroll/surfbatch/internal/app/job"
	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	storageconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

const moviesCSV = `title,year,genre,rating
Heat,1995,Crime,8.3
Alien,1979,Horror,8.5
Mystery Reel,N/A,Drama,6.1
`

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	return cfg
}

func startApp(t *testing.T, cfg *config.Config, out io.Writer) *app.Application {
	t.Helper()
	application, err := app.Start(context.Background(), cfg,
		fx.Supply(fx.Annotate(out, fx.As(new(io.Writer)), fx.ResultTags(`name:"jobOutput"`))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, application.Stop()) })
	return application
}

func TestRunJob_HelloCreatesNewInstanceEachRun(t *testing.T) {
	var out bytes.Buffer
	application := startApp(t, loadConfig(t), &out)

	first, err := application.RunJob(context.Background(), appjob.HelloJobName, model.NewJobParameters())
	require.NoError(t, err)
	second, err := application.RunJob(context.Background(), appjob.HelloJobName, model.NewJobParameters())
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, first.Status)
	assert.Equal(t, model.StatusCompleted, second.Status)
	assert.NotEqual(t, first.JobInstanceID, second.JobInstanceID)

	uuid, ok := first.Parameters.GetString(appjob.RunIDKey)
	require.True(t, ok)
	assert.Contains(t, out.String(), "Hello, Spring Batch! your UUID is "+uuid+"\n")
	assert.Equal(t, 2, strings.Count(out.String(), "Hello, Spring Batch!"))
}

func TestStart_RegistersJobsWithoutDatasource(t *testing.T) {
	application := startApp(t, loadConfig(t), io.Discard)

	names := application.Jobs.Names()
	assert.Contains(t, names, appjob.HelloJobName)
	assert.Contains(t, names, appjob.FlakyJobName)
	assert.NotContains(t, names, appjob.ImportJobName)
	assert.NotContains(t, names, appjob.ExportJobName)
}

func TestRunJob_UnknownJob(t *testing.T) {
	application := startApp(t, loadConfig(t), io.Discard)

	_, err := application.RunJob(context.Background(), "noSuchJob", model.NewJobParameters())
	assert.Error(t, err)
}

func TestRunJob_FlakyJobRecoversWithinRetries(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Surfbatch.Jobs[appjob.FlakyJobName] = map[string]interface{}{
		"fail_count":       2,
		"max_attempts":     3,
		"initial_interval": "1ms",
		"max_interval":     "5ms",
	}
	application := startApp(t, cfg, io.Discard)

	je, err := application.RunJob(context.Background(), appjob.FlakyJobName, model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, je.Status)
}

func TestRunJob_FlakyJobFailsWithoutRetry(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Surfbatch.Jobs[appjob.FlakyJobName] = map[string]interface{}{"fail_count": 1}
	application := startApp(t, cfg, io.Discard)

	je, err := application.RunJob(context.Background(), appjob.FlakyJobName, model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, je.Status)
	assert.NotEmpty(t, je.Failures)
}

func TestRunJob_ImportThenExport(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "movies.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(moviesCSV), 0o644))
	outDir := filepath.Join(dir, "out")

	cfg := loadConfig(t)
	if cfg.Surfbatch.Datasources == nil {
		cfg.Surfbatch.Datasources = dbconfig.DatasourcesConfig{}
	}
	cfg.Surfbatch.Datasources["app"] = dbconfig.DatabaseConfig{Type: "sqlite", Database: filepath.Join(dir, "movies.db")}
	cfg.Surfbatch.Storage = storageconfig.DatasourcesConfig{"output": {Type: "local", BaseDir: outDir}}
	cfg.Surfbatch.Jobs[appjob.ImportJobName]["chunk_size"] = 2
	application := startApp(t, cfg, io.Discard)

	params := model.NewJobParameters().WithString(appjob.InputFileKey, csvPath)
	imported, err := application.RunJob(context.Background(), appjob.ImportJobName, params)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, imported.Status, "failures: %v", imported.Failures)
	require.Len(t, imported.StepExecutions, 2)
	importStep := imported.StepExecutions[1]
	assert.Equal(t, appjob.ImportStepName, importStep.StepName)
	assert.Equal(t, int64(3), importStep.ReadCount)
	assert.Equal(t, int64(3), importStep.WriteCount)

	// The daily run identity admits one import of a file per day.
	_, err = application.RunJob(context.Background(), appjob.ImportJobName, params)
	var dup *exception.DuplicateRunError
	assert.ErrorAs(t, err, &dup)

	exported, err := application.RunJob(context.Background(), appjob.ExportJobName, model.NewJobParameters())
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, exported.Status, "failures: %v", exported.Failures)
	assert.Equal(t, int64(3), exported.StepExecutions[0].ReadCount)

	var files []string
	require.NoError(t, filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".parquet") {
			rel, _ := filepath.Rel(outDir, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	}))
	require.Len(t, files, 3)
	assert.True(t, strings.HasPrefix(files[0], "movies/genre=crime/"))
	assert.True(t, strings.HasPrefix(files[1], "movies/genre=drama/"))
	assert.True(t, strings.HasPrefix(files[2], "movies/genre=horror/"))
}

func TestRunJob_ImportRequiresInputFile(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t)
	if cfg.Surfbatch.Datasources == nil {
		cfg.Surfbatch.Datasources = dbconfig.DatasourcesConfig{}
	}
	cfg.Surfbatch.Datasources["app"] = dbconfig.DatabaseConfig{Type: "sqlite", Database: filepath.Join(dir, "movies.db")}
	application := startApp(t, cfg, io.Discard)

	_, err := application.RunJob(context.Background(), appjob.ImportJobName, model.NewJobParameters())
	assert.Error(t, err)
}

func TestRunJob_CancelledContextStopsJob(t *testing.T) {
	application := startApp(t, loadConfig(t), io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	je, err := application.RunJob(ctx, appjob.HelloJobName, model.NewJobParameters())
	require.NoError(t, err)
	assert.True(t, je.Status.IsFinished())
}
