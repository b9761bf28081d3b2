// Package reader provides ItemReader implementations: in-memory lists, delimited
// text files and SQL cursors.
package reader

import (
	"context"
	"io"
	"sync"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
)

// ListItemReader returns the items of a fixed slice in order, then io.EOF.
type ListItemReader[T any] struct {
	mu    sync.Mutex
	items []T
	pos   int
}

var _ port.ItemReader[any] = (*ListItemReader[any])(nil)

// NewListItemReader creates a reader over a copy of items.
func NewListItemReader[T any](items []T) *ListItemReader[T] {
	return &ListItemReader[T]{items: append([]T(nil), items...)}
}

// Open rewinds the reader.
func (r *ListItemReader[T]) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	return nil
}

// Read returns the next item or io.EOF.
func (r *ListItemReader[T]) Read(ctx context.Context) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if r.pos >= len(r.items) {
		return zero, io.EOF
	}
	item := r.items[r.pos]
	r.pos++
	return item, nil
}

// Close is a no-op.
func (r *ListItemReader[T]) Close(ctx context.Context) error {
	return nil
}
