package gcs_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/gcs"
)

func TestGCSAdapter_EmulatorClient(t *testing.T) {
	ctx := context.Background()
	conn, err := gcs.NewFactory().Open(ctx, "archive", storageConfig.StorageConfig{
		Type:     "gcs",
		Endpoint: "http://127.0.0.1:4443/storage/v1/",
	})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "gcs", conn.Type())
	assert.Equal(t, "archive", conn.Name())

	err = conn.Upload(ctx, "", "movies.parquet", strings.NewReader("PAR1"), "application/octet-stream")
	assert.ErrorContains(t, err, "bucket_name is not configured")
}
