package writer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// ListItemWriter collects written items in memory.
type ListItemWriter[T any] struct {
	mu    sync.Mutex
	items []T
	sizes []int
}

var _ port.ItemWriter[any] = (*ListItemWriter[any])(nil)

// NewListItemWriter creates an empty ListItemWriter.
func NewListItemWriter[T any]() *ListItemWriter[T] {
	return &ListItemWriter[T]{}
}

func (w *ListItemWriter[T]) Open(ctx context.Context) error { return nil }

func (w *ListItemWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, items...)
	w.sizes = append(w.sizes, len(items))
	return nil
}

func (w *ListItemWriter[T]) Close(ctx context.Context) error { return nil }

// Items returns a copy of everything written.
func (w *ListItemWriter[T]) Items() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]T(nil), w.items...)
}

// Chunks returns the number of Write calls.
func (w *ListItemWriter[T]) Chunks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sizes)
}

// ChunkSizes returns the number of items of each Write call, in call order.
func (w *ListItemWriter[T]) ChunkSizes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.sizes...)
}

// LoggingItemWriter logs every item at info level.
type LoggingItemWriter[T any] struct {
	name string
	log  *zap.Logger
}

var _ port.ItemWriter[any] = (*LoggingItemWriter[any])(nil)

// NewLoggingItemWriter creates a writer logging through the global logger.
func NewLoggingItemWriter[T any](name string) *LoggingItemWriter[T] {
	return &LoggingItemWriter[T]{name: name}
}

func (w *LoggingItemWriter[T]) Open(ctx context.Context) error {
	w.log = logger.Zap().Named(w.name)
	return nil
}

func (w *LoggingItemWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	for _, item := range items {
		w.log.Info("item", zap.Any("value", item))
	}
	return nil
}

// Close flushes the logger. Sync errors on terminals are ignored.
func (w *LoggingItemWriter[T]) Close(ctx context.Context) error {
	if w.log != nil {
		_ = w.log.Sync()
	}
	return nil
}
