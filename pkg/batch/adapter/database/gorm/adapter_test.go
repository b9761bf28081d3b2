package gorm_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfbatch/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/gorm/sqlite"
)

type movie struct {
	ID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Title string `gorm:"not null"`
	Year  int
}

func (movie) TableName() string { return "movies" }

func newProvider(t *testing.T) (*gormadapter.Provider, *gormadapter.GormDBAdapter) {
	t.Helper()
	p := gormadapter.NewProvider(dbconfig.DatasourcesConfig{
		"main": {Type: "sqlite", Database: filepath.Join(t.TempDir(), "test.db")},
	})
	t.Cleanup(func() { _ = p.CloseAll() })

	conn, err := p.GetConnection(context.Background(), "main")
	require.NoError(t, err)
	adapter, ok := conn.(*gormadapter.GormDBAdapter)
	require.True(t, ok)
	require.NoError(t, adapter.GetGormDB().AutoMigrate(&movie{}))
	return p, adapter
}

func TestProvider_GetConnectionIsCached(t *testing.T) {
	p, first := newProvider(t)
	second, err := p.GetConnection(context.Background(), "main")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "sqlite", second.Type())
	assert.Equal(t, "main", second.Name())
	assert.Equal(t, []string{"main"}, p.Names())

	_, err = p.GetConnection(context.Background(), "missing")
	assert.Error(t, err)
}

func TestProvider_UnknownDialect(t *testing.T) {
	p := gormadapter.NewProvider(dbconfig.DatasourcesConfig{"x": {Type: "oracle"}})
	_, err := p.GetConnection(context.Background(), "x")
	assert.ErrorContains(t, err, "no dialector registered")
}

func TestGormTransactionManager_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	_, conn := newProvider(t)
	tm := gormadapter.NewGormTransactionManager(conn)

	committed, err := tm.Begin(ctx)
	require.NoError(t, err)
	_, err = committed.ExecuteUpdate(ctx, []movie{{ID: 1, Title: "Fargo", Year: 1996}, {ID: 2, Title: "Heat", Year: 1995}}, "CREATE", "", nil)
	require.NoError(t, err)
	require.NoError(t, tm.Commit(committed))
	assert.ErrorIs(t, tm.Commit(committed), sql.ErrTxDone)

	rolledBack, err := tm.Begin(ctx)
	require.NoError(t, err)
	_, err = rolledBack.ExecuteUpdate(ctx, []movie{{ID: 3, Title: "Alien", Year: 1979}}, "CREATE", "", nil)
	require.NoError(t, err)
	require.NoError(t, tm.Rollback(rolledBack))

	count, err := conn.Count(ctx, &movie{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var found []movie
	require.NoError(t, conn.ExecuteQuery(ctx, &found, map[string]interface{}{"year": 1996}))
	require.Len(t, found, 1)
	assert.Equal(t, "Fargo", found[0].Title)
}

func TestGormDBAdapter_Upsert(t *testing.T) {
	ctx := context.Background()
	_, conn := newProvider(t)

	_, err := conn.ExecuteUpsert(ctx, []movie{{ID: 1, Title: "Fargo", Year: 0}}, "", []string{"id"}, []string{"title", "year"})
	require.NoError(t, err)
	_, err = conn.ExecuteUpsert(ctx, []movie{{ID: 1, Title: "Fargo", Year: 1996}}, "", []string{"id"}, []string{"title", "year"})
	require.NoError(t, err)

	var found []movie
	require.NoError(t, conn.ExecuteQuery(ctx, &found, nil))
	require.Len(t, found, 1)
	assert.Equal(t, 1996, found[0].Year)

	_, err = conn.ExecuteUpdate(ctx, []movie{{ID: 1, Title: "Again"}}, "CREATE", "", nil)
	assert.True(t, database.IsDuplicateKeyError(err), "got %v", err)
}

func TestGormTransactionManager_ForeignTx(t *testing.T) {
	_, conn := newProvider(t)
	tm := gormadapter.NewGormTransactionManager(conn)
	assert.ErrorIs(t, tm.Commit(fakeTx{}), gormadapter.ErrForeignTransaction)
	assert.ErrorIs(t, tm.Rollback(fakeTx{}), gormadapter.ErrForeignTransaction)
}

type fakeTx struct{}

func (fakeTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return 0, nil
}

func (fakeTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return 0, nil
}
