package writer_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/local"
	writer "github.com/tigerroll/surfbatch/pkg/batch/component/step/writer"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	batchtest "github.com/tigerroll/surfbatch/pkg/batch/test"
)

type movie struct {
	Title string `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year  int32  `parquet:"name=year, type=INT32"`
}

func TestSqlBulkWriter_SplitsIntoStatements(t *testing.T) {
	m := new(batchtest.MockTx)
	items := []movie{{"a", 1}, {"b", 2}, {"c", 3}}
	m.On("ExecuteUpdate", items[:2], "CREATE", "movies").Return(int64(2), nil).Once()
	m.On("ExecuteUpdate", items[2:], "CREATE", "movies").Return(int64(1), nil).Once()

	w := writer.NewSqlBulkWriter[movie]("movies", 2, "movies", nil, nil)
	require.NoError(t, w.Write(context.Background(), m, items))
	m.AssertExpectations(t)
}

func TestSqlBulkWriter_Upsert(t *testing.T) {
	m := new(batchtest.MockTx)
	items := []movie{{"a", 1}}
	boom := errors.New("deadlock")
	m.On("ExecuteUpsert", items, "movies", []string{"title"}, []string{"year"}).Return(int64(0), boom)

	w := writer.NewSqlBulkWriter[movie]("movies", 0, "movies", []string{"title"}, []string{"year"})
	err := w.Write(context.Background(), m, items)
	assert.ErrorIs(t, err, boom)
}

func TestListItemWriter(t *testing.T) {
	w := writer.NewListItemWriter[int]()
	require.NoError(t, w.Write(context.Background(), nil, []int{1, 2}))
	require.NoError(t, w.Write(context.Background(), nil, []int{3}))
	assert.Equal(t, []int{1, 2, 3}, w.Items())
	assert.Equal(t, 2, w.Chunks())
}

func TestLoggingItemWriter(t *testing.T) {
	w := writer.NewLoggingItemWriter[movie]("movies")
	ctx := context.Background()
	require.NoError(t, w.Open(ctx))
	require.NoError(t, w.Write(ctx, nil, []movie{{"Fargo", 1996}}))
	require.NoError(t, w.Close(ctx))
}

func TestParquetWriter_UploadsOneFilePerPartitionAndChunk(t *testing.T) {
	ctx := context.Background()
	provider := storageAdapter.NewProvider(storageConfig.DatasourcesConfig{
		"exports": {Type: "local", BaseDir: t.TempDir()},
	}, local.NewFactory())

	w, err := writer.NewParquetWriter[movie]("movies", map[string]interface{}{
		"storageRef":      "exports",
		"outputBaseDir":   "movies",
		"compressionType": "NONE",
	}, provider, func(m movie) (string, error) {
		if m.Year < 1996 {
			return "old", nil
		}
		return "new", nil
	})
	require.NoError(t, err)

	require.NoError(t, w.Open(ctx))
	require.NoError(t, w.Write(ctx, nil, []movie{{"Heat", 1995}, {"Fargo", 1996}}))
	require.NoError(t, w.Write(ctx, nil, []movie{{"Scream", 1996}}))
	require.NoError(t, w.Close(ctx))

	files := w.Files()
	require.Len(t, files, 3)
	assert.Contains(t, files[0], "movies/new/part-")
	assert.Contains(t, files[1], "movies/old/part-")

	conn, err := provider.GetConnection(ctx, "exports")
	require.NoError(t, err)
	rc, err := conn.Download(ctx, "", files[0])
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestParquetWriter_InvalidConfig(t *testing.T) {
	_, err := writer.NewParquetWriter[movie]("movies", map[string]interface{}{"storageRef": "exports"}, nil, nil)
	assert.ErrorIs(t, err, exception.ErrInvalidDefinition)

	_, err = writer.NewParquetWriter[movie]("movies", map[string]interface{}{
		"storageRef": "exports", "outputBaseDir": "x", "compressionType": "LZMA",
	}, nil, nil)
	assert.ErrorIs(t, err, exception.ErrInvalidDefinition)
}
