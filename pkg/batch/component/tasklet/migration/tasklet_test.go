package migration_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/surfbatch/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
)

type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error {
	return m.Called(ctx, migrationFS, dir, tableName).Error(0)
}

func (m *MockMigrator) Down(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error {
	return m.Called(ctx, migrationFS, dir, tableName).Error(0)
}

func (m *MockMigrator) Version(ctx context.Context, migrationFS fs.FS, dir string, tableName string) (uint, bool, error) {
	args := m.Called(ctx, migrationFS, dir, tableName)
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *MockMigrator) DBType() string {
	return "sqlite"
}

var appMigrations = fstest.MapFS{
	"sqlite/000001_create_movies.up.sql":   {Data: []byte("CREATE TABLE movies (id INTEGER PRIMARY KEY, title TEXT NOT NULL);")},
	"sqlite/000001_create_movies.down.sql": {Data: []byte("DROP TABLE movies;")},
}

func TestMigrationTasklet_DefaultsToUpInDBTypeDir(t *testing.T) {
	m := new(MockMigrator)
	m.On("Up", mock.Anything, mock.Anything, "sqlite", migration.AppMigrationsTable).Return(nil)

	tasklet, err := migration.NewMigrationTasklet(m, appMigrations)
	require.NoError(t, err)

	status, err := tasklet.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, port.RepeatStatusFinished, status)
	m.AssertExpectations(t)
}

func TestMigrationTasklet_DownWithOptions(t *testing.T) {
	m := new(MockMigrator)
	m.On("Down", mock.Anything, mock.Anything, "custom", "my_versions").Return(errors.New("locked"))

	tasklet, err := migration.NewMigrationTasklet(m, appMigrations,
		migration.WithCommand("down"), migration.WithDir("custom"), migration.WithTable("my_versions"))
	require.NoError(t, err)

	_, err = tasklet.Execute(context.Background(), nil)
	assert.ErrorContains(t, err, "locked")
	m.AssertExpectations(t)
}

func TestNewMigrationTasklet_InvalidDefinition(t *testing.T) {
	_, err := migration.NewMigrationTasklet(nil, appMigrations)
	assert.Error(t, err)

	_, err = migration.NewMigrationTasklet(new(MockMigrator), appMigrations, migration.WithCommand("force"))
	assert.Error(t, err)
}

func TestMigrator_SQLiteUpVersionDown(t *testing.T) {
	ctx := context.Background()
	cfg := dbconfig.DatabaseConfig{Type: "sqlite", Database: filepath.Join(t.TempDir(), "app.db")}
	migrator := migration.NewMigrator(cfg)

	require.NoError(t, migrator.Up(ctx, appMigrations, "sqlite", migration.AppMigrationsTable))
	// A second run is a no-op.
	require.NoError(t, migrator.Up(ctx, appMigrations, "sqlite", migration.AppMigrationsTable))

	version, dirty, err := migrator.Version(ctx, appMigrations, "sqlite", migration.AppMigrationsTable)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	db, err := gormadapter.Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.Exec("INSERT INTO movies (id, title) VALUES (1, 'Heat')").Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	require.NoError(t, migrator.Down(ctx, appMigrations, "sqlite", migration.AppMigrationsTable))
	version, _, err = migrator.Version(ctx, appMigrations, "sqlite", migration.AppMigrationsTable)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestMigrator_UnsupportedType(t *testing.T) {
	migrator := migration.NewMigrator(dbconfig.DatabaseConfig{Type: "oracle"})
	assert.Error(t, migrator.Up(context.Background(), appMigrations, "oracle", migration.AppMigrationsTable))
}
