package gorm

import (
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// GormWriter routes GORM log output to the batch logger.
type GormWriter struct{}

// Printf implements gormlogger.Writer.
func (w GormWriter) Printf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// NewGormLogger creates a GORM logger at level ("silent", "error", "warn" or "info").
// Unknown levels mean silent.
func NewGormLogger(level string) gormlogger.Interface {
	var logLevel gormlogger.LogLevel
	switch strings.ToLower(level) {
	case "error":
		logLevel = gormlogger.Error
	case "warn":
		logLevel = gormlogger.Warn
	case "info", "debug":
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Silent
	}
	return gormlogger.New(GormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
