// Package writer provides ItemWriter implementations for databases, object storage,
// logs and in-memory collection.
package writer

import (
	"context"
	"fmt"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// SqlBulkWriter writes chunks through the chunk transaction, so a failed chunk
// leaves no rows behind. With conflictColumns it upserts; otherwise it inserts.
type SqlBulkWriter[T any] struct {
	name            string
	bulkSize        int
	tableName       string
	conflictColumns []string
	updateColumns   []string
}

var _ port.ItemWriter[any] = (*SqlBulkWriter[any])(nil)

// NewSqlBulkWriter creates a SqlBulkWriter.
//
// Parameters:
//
//	bulkSize: Maximum rows per statement; values below 1 mean the whole chunk.
//	tableName: Target table; empty means the table of T.
//	conflictColumns: Unique key columns for upsert; empty means plain insert.
//	updateColumns: Columns updated on conflict; empty means do nothing.
func NewSqlBulkWriter[T any](name string, bulkSize int, tableName string, conflictColumns []string, updateColumns []string) *SqlBulkWriter[T] {
	return &SqlBulkWriter[T]{
		name:            name,
		bulkSize:        bulkSize,
		tableName:       tableName,
		conflictColumns: conflictColumns,
		updateColumns:   updateColumns,
	}
}

// Open is a no-op.
func (w *SqlBulkWriter[T]) Open(ctx context.Context) error {
	return nil
}

// Write writes items in statements of at most bulkSize rows.
func (w *SqlBulkWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	size := w.bulkSize
	if size < 1 {
		size = len(items)
	}

	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batch := items[i:end]

		var err error
		if len(w.conflictColumns) > 0 {
			_, err = t.ExecuteUpsert(ctx, batch, w.tableName, w.conflictColumns, w.updateColumns)
		} else {
			_, err = t.ExecuteUpdate(ctx, batch, "CREATE", w.tableName, nil)
		}
		if err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("SqlBulkWriter '%s' failed to write rows %d-%d", w.name, i, end-1), err, false, false)
		}
		logger.Debugf("SqlBulkWriter '%s': wrote %d rows.", w.name, len(batch))
	}
	return nil
}

// Close is a no-op.
func (w *SqlBulkWriter[T]) Close(ctx context.Context) error {
	return nil
}
