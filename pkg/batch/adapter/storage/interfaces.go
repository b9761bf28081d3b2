// Package storage defines object storage connections used by file-based readers
// and writers, and a provider that opens them by name.
package storage

import (
	"context"
	"io"

	storageConfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/surfbatch/pkg/batch/core/adapter"
)

// StorageExecutor defines object operations.
type StorageExecutor interface {
	// Upload writes data to bucket/objectName. An empty bucket means the configured default.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens bucket/objectName. The caller closes the reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes bucket/objectName. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named, open storage backend.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// Factory opens a connection for one adapter type.
type Factory interface {
	// Type is the StorageConfig.Type the factory serves.
	Type() string
	// Open creates a connection named name.
	Open(ctx context.Context, name string, cfg storageConfig.StorageConfig) (StorageConnection, error)
}
