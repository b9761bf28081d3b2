package reader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// SqlCursorReader streams the rows of a query, mapping each to T.
type SqlCursorReader[T any] struct {
	db     *sql.DB
	name   string
	query  string
	args   []any
	mapper func(*sql.Rows) (T, error)
	rows   *sql.Rows
	read   int64
}

var _ port.ItemReader[any] = (*SqlCursorReader[any])(nil)

// NewSqlCursorReader creates a reader for query.
func NewSqlCursorReader[T any](db *sql.DB, name string, query string, args []any, mapper func(*sql.Rows) (T, error)) *SqlCursorReader[T] {
	return &SqlCursorReader[T]{
		db:     db,
		name:   name,
		query:  query,
		args:   args,
		mapper: mapper,
	}
}

// Open executes the query.
func (r *SqlCursorReader[T]) Open(ctx context.Context) error {
	logger.Infof("SqlCursorReader '%s': executing query: %s", r.name, r.query)
	rows, err := r.db.QueryContext(ctx, r.query, r.args...)
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("failed to execute query for SqlCursorReader '%s'", r.name), err, false, false)
	}
	r.rows = rows
	r.read = 0
	return nil
}

// Read maps the next row. It returns io.EOF after the last row.
func (r *SqlCursorReader[T]) Read(ctx context.Context) (T, error) {
	var item T
	if r.rows == nil {
		return item, errors.New("SqlCursorReader '" + r.name + "' is not open")
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return item, exception.NewBatchError("reader", fmt.Sprintf("row iteration failed for SqlCursorReader '%s'", r.name), err, false, false)
		}
		return item, io.EOF
	}
	mapped, err := r.mapper(r.rows)
	if err != nil {
		return item, exception.NewBatchError("reader", fmt.Sprintf("failed to map row %d for SqlCursorReader '%s'", r.read+1, r.name), err, false, true)
	}
	r.read++
	return mapped, nil
}

// Close closes the cursor.
func (r *SqlCursorReader[T]) Close(ctx context.Context) error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	logger.Debugf("SqlCursorReader '%s': closed after %d row(s).", r.name, r.read)
	return err
}
