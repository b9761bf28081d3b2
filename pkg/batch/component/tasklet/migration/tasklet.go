package migration

import (
	"context"
	"io/fs"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

const taskletName = "migration_tasklet"

// MigrationTasklet runs one migration command and finishes.
type MigrationTasklet struct {
	migrator     Migrator
	migrationFS  fs.FS
	migrationDir string
	tableName    string
	command      string
}

var _ port.Tasklet = (*MigrationTasklet)(nil)

// Option configures a MigrationTasklet.
type Option func(*MigrationTasklet)

// WithDir sets the directory inside the migration FS. The default is the database type.
func WithDir(dir string) Option {
	return func(t *MigrationTasklet) { t.migrationDir = dir }
}

// WithTable sets the version table. The default is AppMigrationsTable.
func WithTable(table string) Option {
	return func(t *MigrationTasklet) { t.tableName = table }
}

// WithCommand sets the command, "up" (default) or "down".
func WithCommand(command string) Option {
	return func(t *MigrationTasklet) { t.command = command }
}

// NewMigrationTasklet creates a tasklet applying migrationFS with migrator.
func NewMigrationTasklet(migrator Migrator, migrationFS fs.FS, opts ...Option) (*MigrationTasklet, error) {
	if migrator == nil || migrationFS == nil {
		return nil, exception.NewInvalidDefinition(taskletName, "migrator and migration FS are required")
	}
	t := &MigrationTasklet{
		migrator:    migrator,
		migrationFS: migrationFS,
		tableName:   AppMigrationsTable,
		command:     "up",
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.migrationDir == "" {
		t.migrationDir = migrator.DBType()
	}
	if t.command != "up" && t.command != "down" {
		return nil, exception.NewInvalidDefinition(taskletName, "unknown migration command: %s", t.command)
	}
	return t, nil
}

// Execute applies the migrations.
func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (port.RepeatStatus, error) {
	logger.Infof("Starting database migration '%s' from directory '%s' (table %s).", t.command, t.migrationDir, t.tableName)

	var err error
	if t.command == "down" {
		err = t.migrator.Down(ctx, t.migrationFS, t.migrationDir, t.tableName)
	} else {
		err = t.migrator.Up(ctx, t.migrationFS, t.migrationDir, t.tableName)
	}
	if err != nil {
		return port.RepeatStatusFinished, exception.NewBatchError(taskletName, "Migration '"+t.command+"' failed", err, false, false)
	}
	return port.RepeatStatusFinished, nil
}
