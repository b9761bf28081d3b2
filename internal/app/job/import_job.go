package job

import (
	"io/fs"
	"strings"

	"github.com/tigerroll/surfbatch/internal/app/domain"
	"github.com/tigerroll/surfbatch/internal/app/step"
	"github.com/tigerroll/surfbatch/pkg/batch/component/step/reader"
	"github.com/tigerroll/surfbatch/pkg/batch/component/step/writer"
	"github.com/tigerroll/surfbatch/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	corejob "github.com/tigerroll/surfbatch/pkg/batch/core/job"
	"github.com/tigerroll/surfbatch/pkg/batch/core/tx"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/factory"
	itemstep "github.com/tigerroll/surfbatch/pkg/batch/engine/step/item"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

const (
	ImportJobName     = "importJob"
	ImportMigrateStep = "migrateStep"
	ImportStepName    = "importStep"
	// InputFileKey is the job parameter naming the CSV to import.
	InputFileKey = "input.file"
	// RunDateKey is the daily run identity of importJob.
	RunDateKey = "run.date"
)

// ImportJobProperties binds surfbatch.jobs.importJob.
type ImportJobProperties struct {
	DatasourceRef string `yaml:"datasource_ref"`
	// InputFile may reference job parameters, e.g. #{jobParameters['input.file']}.
	InputFile   string `yaml:"input_file"`
	Delimiter   string `yaml:"delimiter"`
	LinesToSkip int    `yaml:"lines_to_skip"`
	// MinYear filters out older movies. Zero keeps everything.
	MinYear  int `yaml:"min_year"`
	BulkSize int `yaml:"bulk_size"`
	// ChunkSize and FailurePolicy override surfbatch.batch when set.
	ChunkSize     int    `yaml:"chunk_size"`
	FailurePolicy string `yaml:"failure_policy"`
	// Incrementer is "daily" (default), "uuid", "timestamp" or "none".
	Incrementer string `yaml:"incrementer"`
}

// BindImportJobProperties applies properties over the defaults.
func BindImportJobProperties(properties map[string]interface{}) (ImportJobProperties, error) {
	props := ImportJobProperties{
		InputFile:   "#{jobParameters['" + InputFileKey + "']}",
		Delimiter:   ",",
		LinesToSkip: 1,
		BulkSize:    100,
		Incrementer: "daily",
	}
	if err := configbinder.BindProperties(properties, &props); err != nil {
		return props, exception.NewInvalidDefinition(ImportJobName, "%v", err)
	}
	return props, nil
}

// NewImportJob builds importJob: a migration step creating the movies table, then a
// chunk step reading the CSV, filtering by year and upserting into movies inside
// the chunk transaction of txManager.
func NewImportJob(
	f factory.StepFactory,
	props ImportJobProperties,
	migrator migration.Migrator,
	migrations fs.FS,
	txManager tx.TransactionManager,
	inc port.JobParametersIncrementer,
	listeners ...port.JobExecutionListener,
) (port.Job, error) {
	migrate, err := migration.NewMigrationTasklet(migrator, migrations)
	if err != nil {
		return nil, err
	}
	migrateStep, err := f.CreateTaskletStep(ImportMigrateStep, migrate)
	if err != nil {
		return nil, err
	}

	delimiter := ','
	if d := []rune(props.Delimiter); len(d) == 1 {
		delimiter = d[0]
	} else if props.Delimiter != "" {
		return nil, exception.NewInvalidDefinition(ImportJobName, "delimiter must be a single character, got %q", props.Delimiter)
	}
	newReader := func() (port.ItemReader[domain.Movie], error) {
		return reader.NewDelimitedFileItemReader(ImportStepName, reader.FileOpener(props.InputFile), reader.DelimitedOptions{
			Delimiter: delimiter,
			Columns:   step.MovieColumns,
			SkipLines: props.LinesToSkip,
			TrimSpace: true,
		}, step.MapMovieRecord)
	}
	if _, err := newReader(); err != nil {
		return nil, err
	}
	newWriter := func() (port.ItemWriter[domain.Movie], error) {
		return writer.NewSqlBulkWriter[domain.Movie](ImportStepName, props.BulkSize, "movies", []string{"title", "year"}, []string{"genre", "rating"}), nil
	}

	overrides := []itemstep.ChunkOption{itemstep.WithTransactionManager(txManager)}
	if props.FailurePolicy != "" {
		policy, err := itemstep.ParseFailurePolicy(props.FailurePolicy)
		if err != nil {
			return nil, exception.NewInvalidDefinition(ImportJobName, "%v", err)
		}
		overrides = append(overrides, itemstep.WithFailurePolicy(policy))
	}

	processor := step.NewMovieProcessor(int32(props.MinYear))
	var importStep port.Step
	if props.ChunkSize > 0 {
		importStep, err = itemstep.NewChunkStepWithFactories[domain.Movie, domain.Movie](ImportStepName, newReader, processor, newWriter, props.ChunkSize, f.ChunkOptions(overrides...)...)
	} else {
		importStep, err = factory.CreateChunkStepWithFactories[domain.Movie, domain.Movie](f, ImportStepName, newReader, processor, newWriter, overrides...)
	}
	if err != nil {
		return nil, err
	}

	opts := []corejob.Option{corejob.WithListeners(listeners...)}
	if inc != nil {
		opts = append(opts, corejob.WithIncrementer(inc))
	}
	if strings.Contains(props.InputFile, "jobParameters['"+InputFileKey+"']") {
		opts = append(opts, corejob.WithRequiredParameters(InputFileKey))
	}
	return corejob.NewSimpleJob(ImportJobName, []port.Step{migrateStep, importStep}, opts...)
}
