package local_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/local"
)

func TestLocalAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := storageAdapter.NewProvider(storageConfig.DatasourcesConfig{
		"exports": {Type: "local", BaseDir: t.TempDir(), BucketName: "bucket"},
	}, local.NewFactory())
	defer p.CloseAll()

	conn, err := p.GetConnection(ctx, "exports")
	require.NoError(t, err)
	again, err := p.GetConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	require.NoError(t, conn.Upload(ctx, "", "2026/10/movies.parquet", strings.NewReader("PAR1"), "application/octet-stream"))
	require.NoError(t, conn.Upload(ctx, "", "2026/11/movies.parquet", strings.NewReader("PAR1"), "application/octet-stream"))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "", "2026/10", func(n string) error {
		names = append(names, n)
		return nil
	}))
	assert.Equal(t, []string{"2026/10/movies.parquet"}, names)

	rc, err := conn.Download(ctx, "", "2026/10/movies.parquet")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data))

	require.NoError(t, conn.DeleteObject(ctx, "", "2026/10/movies.parquet"))
	require.NoError(t, conn.DeleteObject(ctx, "", "2026/10/movies.parquet"))
	_, err = conn.Download(ctx, "", "2026/10/movies.parquet")
	assert.Error(t, err)
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{BaseDir: t.TempDir()}, "exports")
	require.NoError(t, err)

	err = conn.Upload(context.Background(), "", "../outside.txt", strings.NewReader("x"), "text/plain")
	assert.ErrorContains(t, err, "outside of base_dir")
}

func TestProvider_UnknownConnection(t *testing.T) {
	p := storageAdapter.NewProvider(storageConfig.DatasourcesConfig{
		"s3": {Type: "s3"},
	}, local.NewFactory())

	_, err := p.GetConnection(context.Background(), "missing")
	assert.Error(t, err)
	_, err = p.GetConnection(context.Background(), "s3")
	assert.ErrorContains(t, err, "unsupported type")
}
