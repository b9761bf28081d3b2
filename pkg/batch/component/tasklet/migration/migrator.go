// Package migration applies golang-migrate schema migrations, either directly or as
// a tasklet step.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

const (
	// FrameworkMigrationsTable tracks the job repository schema.
	FrameworkMigrationsTable = "batch_framework_migrations"
	// AppMigrationsTable tracks application schemas.
	AppMigrationsTable = "batch_app_migrations"
)

// Migrator applies migrations found under dir in migrationFS. tableName records the
// applied version, so independent migration sets must use different tables.
type Migrator interface {
	Up(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error
	Down(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error
	// Version returns the applied version, or 0 when nothing has been applied.
	Version(ctx context.Context, migrationFS fs.FS, dir string, tableName string) (uint, bool, error)
	// DBType returns the database type, which is also the default migration directory.
	DBType() string
}

type migratorImpl struct {
	cfg dbconfig.DatabaseConfig
}

// NewMigrator creates a Migrator for the database described by cfg.
//
// Every run opens its own connection, because golang-migrate closes the *sql.DB it was
// given. Connections handed out by the gorm Provider are never touched.
func NewMigrator(cfg dbconfig.DatabaseConfig) Migrator {
	return &migratorImpl{cfg: cfg}
}

func (m *migratorImpl) DBType() string {
	return m.cfg.Type
}

func (m *migratorImpl) databaseDriver(sqlDB *sql.DB, tableName string) (database.Driver, error) {
	switch m.cfg.Type {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.cfg.Type)
	}
}

func (m *migratorImpl) open(ctx context.Context, migrationFS fs.FS, dir string, tableName string) (*migrate.Migrate, error) {
	db, err := gormadapter.Open(ctx, m.cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, dir)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", dir, err)
	}
	dbDriver, err := m.databaseDriver(sqlDB, tableName)
	if err != nil {
		_ = sourceDriver.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.cfg.Type, dbDriver)
	if err != nil {
		_ = sourceDriver.Close()
		_ = dbDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, nil
}

func (m *migratorImpl) run(ctx context.Context, migrationFS fs.FS, dir string, tableName string, command string) error {
	logger.Infof("Executing migration '%s' (Path: %s, Table: %s)", command, dir, tableName)

	mInstance, err := m.open(ctx, migrationFS, dir, tableName)
	if err != nil {
		return err
	}
	defer closeMigrate(mInstance)

	var migrateErr error
	switch command {
	case "up":
		migrateErr = mInstance.Up()
	case "down":
		migrateErr = mInstance.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}

	if errors.Is(migrateErr, migrate.ErrNoChange) {
		logger.Infof("Migration '%s': no change.", command)
		return nil
	}
	if migrateErr != nil {
		return fmt.Errorf("migration failed for command '%s' (DB: %s, Path: %s): %w", command, m.cfg.Type, dir, migrateErr)
	}
	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

// Up applies all pending migrations.
func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error {
	return m.run(ctx, migrationFS, dir, tableName, "up")
}

// Down reverts all applied migrations.
func (m *migratorImpl) Down(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error {
	return m.run(ctx, migrationFS, dir, tableName, "down")
}

// Version returns the applied version and whether it is dirty.
func (m *migratorImpl) Version(ctx context.Context, migrationFS fs.FS, dir string, tableName string) (uint, bool, error) {
	mInstance, err := m.open(ctx, migrationFS, dir, tableName)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(mInstance)

	version, dirty, err := mInstance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func closeMigrate(mInstance *migrate.Migrate) {
	srcErr, dbErr := mInstance.Close()
	if srcErr != nil {
		logger.Warnf("Failed to close migration source: %v", srcErr)
	}
	if dbErr != nil {
		logger.Warnf("Failed to close migration database: %v", dbErr)
	}
}
