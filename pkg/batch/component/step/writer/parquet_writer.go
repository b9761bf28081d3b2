package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	storage "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// ParquetWriterConfig configures a ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef names the storage connection to upload to.
	StorageRef string `mapstructure:"storageRef"`
	// Bucket overrides the connection's default bucket.
	Bucket string `mapstructure:"bucket"`
	// OutputBaseDir is the object prefix of every file.
	OutputBaseDir string `mapstructure:"outputBaseDir"`
	// CompressionType is SNAPPY (default), GZIP or NONE.
	CompressionType string `mapstructure:"compressionType"`
}

// ConnectionSource resolves storage connections by name.
type ConnectionSource interface {
	GetConnection(ctx context.Context, name string) (storage.StorageConnection, error)
}

// ParquetWriter encodes each chunk as one Parquet file per partition and uploads
// it to object storage. T must be a struct carrying parquet-go field tags.
//
// Uploaded files are not removed when the chunk transaction rolls back.
type ParquetWriter[T any] struct {
	name         string
	config       ParquetWriterConfig
	connections  ConnectionSource
	partitionKey func(T) (string, error)
	codec        parquet.CompressionCodec

	conn    storage.StorageConnection
	chunk   int
	runID   string
	written []string
}

var _ port.ItemWriter[any] = (*ParquetWriter[any])(nil)

// NewParquetWriter decodes properties into a ParquetWriterConfig and creates the writer.
// A nil partitionKey writes every chunk to a single partition.
func NewParquetWriter[T any](
	name string,
	properties map[string]interface{},
	connections ConnectionSource,
	partitionKey func(T) (string, error),
) (*ParquetWriter[T], error) {
	var config ParquetWriterConfig
	if err := mapstructure.Decode(properties, &config); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("failed to decode ParquetWriter properties for '%s'", name), err, false, false)
	}
	if config.StorageRef == "" {
		return nil, exception.NewInvalidDefinition("writer", "ParquetWriter '%s' requires 'storageRef' property", name)
	}
	if config.OutputBaseDir == "" {
		return nil, exception.NewInvalidDefinition("writer", "ParquetWriter '%s' requires 'outputBaseDir' property", name)
	}
	codec, err := getCompressionCodec(config.CompressionType)
	if err != nil {
		return nil, exception.NewInvalidDefinition("writer", "ParquetWriter '%s': %v", name, err)
	}
	if partitionKey == nil {
		partitionKey = func(T) (string, error) { return "", nil }
	}
	return &ParquetWriter[T]{
		name:         name,
		config:       config,
		connections:  connections,
		partitionKey: partitionKey,
		codec:        codec,
	}, nil
}

// Open resolves the storage connection.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	conn, err := w.connections.GetConnection(ctx, w.config.StorageRef)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to resolve storage connection '%s' for ParquetWriter '%s'", w.config.StorageRef, w.name), err, false, false)
	}
	w.conn = conn
	w.chunk = 0
	w.runID = uuid.NewString()[:8]
	w.written = nil
	logger.Infof("ParquetWriter '%s' opened. Target storage: %s, base directory: %s", w.name, w.config.StorageRef, w.config.OutputBaseDir)
	return nil
}

// Write uploads one file per partition present in items.
func (w *ParquetWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	if w.conn == nil {
		return fmt.Errorf("ParquetWriter '%s' is not open", w.name)
	}
	w.chunk++

	partitions := make(map[string][]T)
	for _, item := range items {
		key, err := w.partitionKey(item)
		if err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("failed to get partition key in ParquetWriter '%s'", w.name), err, false, true)
		}
		partitions[key] = append(partitions[key], item)
	}
	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result error
	for _, key := range keys {
		if err := w.writePartition(ctx, key, partitions[key]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func (w *ParquetWriter[T]) writePartition(ctx context.Context, key string, items []T) (err error) {
	buf := new(bytes.Buffer)
	pw, err := pqwriter.NewParquetWriterFromWriter(buf, new(T), 1)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to create Parquet writer for partition '%s' in ParquetWriter '%s'", key, w.name), err, false, false)
	}
	pw.CompressionType = w.codec

	defer func() {
		if r := recover(); r != nil {
			err = exception.NewBatchErrorf("writer", "Parquet encoding panicked for partition '%s' in ParquetWriter '%s': %s", key, w.name, fmt.Sprint(r))
		}
	}()
	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("failed to encode item for partition '%s' in ParquetWriter '%s'", key, w.name), err, false, false)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to finish Parquet file for partition '%s' in ParquetWriter '%s'", key, w.name), err, false, false)
	}

	objectName := path.Join(w.config.OutputBaseDir, key, fmt.Sprintf("part-%s-%05d.parquet", w.runID, w.chunk))
	if err := w.conn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to upload '%s' in ParquetWriter '%s'", objectName, w.name), err, false, false)
	}
	w.written = append(w.written, objectName)
	logger.Debugf("ParquetWriter '%s': uploaded %d item(s) to %s", w.name, len(items), objectName)
	return nil
}

// Close releases the connection reference. The connection itself belongs to the provider.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	logger.Infof("ParquetWriter '%s' closed after %d file(s).", w.name, len(w.written))
	w.conn = nil
	return nil
}

// Files returns the object names uploaded since Open.
func (w *ParquetWriter[T]) Files() []string {
	return append([]string(nil), w.written...)
}

func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
}
