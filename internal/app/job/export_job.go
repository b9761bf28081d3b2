package job

import (
	"database/sql"

	"github.com/tigerroll/surfbatch/internal/app/domain"
	"github.com/tigerroll/surfbatch/internal/app/step"
	"github.com/tigerroll/surfbatch/pkg/batch/component/step/reader"
	"github.com/tigerroll/surfbatch/pkg/batch/component/step/writer"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	corejob "github.com/tigerroll/surfbatch/pkg/batch/core/job"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/factory"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

const (
	ExportJobName  = "exportJob"
	ExportStepName = "exportStep"
	// RunTimestampKey is the timestamp parameter making every launch a new instance.
	RunTimestampKey = "run.ts"
)

// ExportJobProperties binds surfbatch.jobs.exportJob.
type ExportJobProperties struct {
	DatasourceRef   string `yaml:"datasource_ref"`
	StorageRef      string `yaml:"storage_ref"`
	Bucket          string `yaml:"bucket"`
	OutputBaseDir   string `yaml:"output_base_dir"`
	CompressionType string `yaml:"compression_type"`
}

// BindExportJobProperties applies properties over the defaults.
func BindExportJobProperties(properties map[string]interface{}) (ExportJobProperties, error) {
	props := ExportJobProperties{OutputBaseDir: "movies", CompressionType: "SNAPPY"}
	if err := configbinder.BindProperties(properties, &props); err != nil {
		return props, exception.NewInvalidDefinition(ExportJobName, "%v", err)
	}
	return props, nil
}

// NewExportJob builds exportJob: one chunk step streaming the movies table into
// Parquet files partitioned by genre and uploaded through connections.
func NewExportJob(
	f factory.StepFactory,
	props ExportJobProperties,
	db *sql.DB,
	connections writer.ConnectionSource,
	inc port.JobParametersIncrementer,
	listeners ...port.JobExecutionListener,
) (port.Job, error) {
	newReader := func() (port.ItemReader[domain.Movie], error) {
		return reader.NewSqlCursorReader(db, ExportStepName, step.MovieQuery, nil, step.ScanMovie), nil
	}
	newWriter := func() (port.ItemWriter[domain.Movie], error) {
		return writer.NewParquetWriter[domain.Movie](ExportStepName, map[string]interface{}{
			"storageRef":      props.StorageRef,
			"bucket":          props.Bucket,
			"outputBaseDir":   props.OutputBaseDir,
			"compressionType": props.CompressionType,
		}, connections, step.GenrePartition)
	}
	if _, err := newWriter(); err != nil {
		return nil, err
	}
	exportStep, err := factory.CreateSimpleChunkStepWithFactories[domain.Movie](f, ExportStepName, newReader, newWriter)
	if err != nil {
		return nil, err
	}
	opts := []corejob.Option{corejob.WithListeners(listeners...)}
	if inc != nil {
		opts = append(opts, corejob.WithIncrementer(inc))
	}
	return corejob.NewSimpleJob(ExportJobName, []port.Step{exportStep}, opts...)
}
