package config

import (
	"go.uber.org/fx"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	storageconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// ApplyLogging configures the global logger from cfg.
func ApplyLogging(cfg *Config) {
	logging := cfg.Surfbatch.System.Logging
	logger.Configure(logging.Format, nil)
	logger.SetLogLevel(logging.Level)
}

// NewLoggingConfigProvider extracts *LoggingConfig from *Config so components can
// depend on the logging settings alone.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Surfbatch.System.Logging
}

// NewDatasourcesConfigProvider extracts the database datasources.
func NewDatasourcesConfigProvider(cfg *Config) dbconfig.DatasourcesConfig {
	return cfg.Surfbatch.Datasources
}

// NewStorageConfigProvider extracts the storage datasources.
func NewStorageConfigProvider(cfg *Config) storageconfig.DatasourcesConfig {
	return cfg.Surfbatch.Storage
}

// Module provides the sub-configurations derived from a supplied *Config.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewDatasourcesConfigProvider),
	fx.Provide(NewStorageConfigProvider),
	fx.Invoke(ApplyLogging),
)
