// Package config provides the process-scoped configuration of the batch framework.
package config

import (
	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	storageconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
)

// EmbeddedConfig holds the content of the configuration file compiled into the binary.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (DEBUG, INFO, WARN or ERROR).
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo"). It is also
	// the zone in which the daily run identity decides what "today" is.
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// BatchConfig holds defaults for chunk-oriented steps.
type BatchConfig struct {
	// ChunkSize is the default chunk size.
	ChunkSize int `yaml:"chunk_size"`
	// FailurePolicy is the default chunk failure policy, "ABORT_STEP" or "SKIP_CHUNK".
	FailurePolicy string `yaml:"failure_policy"`
	// SkipLimit bounds item skips during transform. Zero disables skipping.
	SkipLimit int `yaml:"skip_limit"`
	// SkippableErrors names the error types that may be skipped during transform.
	SkippableErrors []string `yaml:"skippable_errors"`
}

// RepositoryConfig selects the JobRepository.
type RepositoryConfig struct {
	// Type is "inmemory" or "sql".
	Type string `yaml:"type"`
	// DatasourceRef names the datasource used by the sql repository.
	DatasourceRef string `yaml:"datasource_ref"`
	// AutoMigrate applies the repository schema on startup.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// MetricsConfig configures metric recording.
type MetricsConfig struct {
	// Exporter is "none", "prometheus" or "otlp".
	Exporter string `yaml:"exporter"`
	// TextfilePath receives the Prometheus registry when the process ends.
	TextfilePath string `yaml:"textfile_path"`
	// PushgatewayURL receives the Prometheus registry when the process ends.
	PushgatewayURL string `yaml:"pushgateway_url"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OTLPConfig configures the OTLP exporters shared by tracing and metrics.
type OTLPConfig struct {
	// Protocol is "grpc" or "http".
	Protocol    string `yaml:"protocol"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys lists JobParameters keys whose values are masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// SurfbatchConfig holds all configuration under the "surfbatch" top-level key.
type SurfbatchConfig struct {
	System      SystemConfig                    `yaml:"system"`
	Batch       BatchConfig                     `yaml:"batch"`
	Repository  RepositoryConfig                `yaml:"repository"`
	Datasources dbconfig.DatasourcesConfig      `yaml:"datasources"`
	Storage     storageconfig.DatasourcesConfig `yaml:"storage"`
	Metrics     MetricsConfig                   `yaml:"metrics"`
	Tracing     TracingConfig                   `yaml:"tracing"`
	OTLP        OTLPConfig                      `yaml:"otlp"`
	Security    SecurityConfig                  `yaml:"security"`
	// Jobs holds free-form properties per job, bound onto typed structs by the job
	// definitions with configbinder.
	Jobs map[string]map[string]interface{} `yaml:"jobs"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfbatch SurfbatchConfig `yaml:"surfbatch"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Surfbatch: SurfbatchConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", Format: "console"},
			},
			Batch: BatchConfig{
				ChunkSize:     10,
				FailurePolicy: "ABORT_STEP",
			},
			Repository: RepositoryConfig{
				Type:          "inmemory",
				DatasourceRef: "metadata",
			},
			Datasources: dbconfig.DatasourcesConfig{},
			Storage:     storageconfig.DatasourcesConfig{},
			Metrics:     MetricsConfig{Exporter: "none"},
			OTLP: OTLPConfig{
				Protocol:    "grpc",
				ServiceName: "surfbatch",
			},
			Security: SecurityConfig{
				MaskedParameterKeys: []string{"password", "api_key", "secret"},
			},
			Jobs: map[string]map[string]interface{}{},
		},
	}
}

// JobProperties returns the properties configured for jobName, or nil.
func (c *Config) JobProperties(jobName string) map[string]interface{} {
	return c.Surfbatch.Jobs[jobName]
}
