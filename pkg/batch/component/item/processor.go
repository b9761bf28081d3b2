// Package item provides reusable ItemProcessor implementations.
package item

import (
	"context"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// PassThroughItemProcessor returns every item unchanged.
type PassThroughItemProcessor[T any] struct{}

// NewPassThroughItemProcessor creates a PassThroughItemProcessor.
func NewPassThroughItemProcessor[T any]() port.ItemProcessor[T, T] {
	return PassThroughItemProcessor[T]{}
}

// Process returns item.
func (PassThroughItemProcessor[T]) Process(ctx context.Context, item T) (T, error) {
	logger.Debugf("PassThroughItemProcessor: processing item: %+v", item)
	return item, nil
}

// FunctionItemProcessor adapts a function to port.ItemProcessor.
type FunctionItemProcessor[I, O any] func(ctx context.Context, item I) (O, error)

// Process calls f.
func (f FunctionItemProcessor[I, O]) Process(ctx context.Context, item I) (O, error) {
	return f(ctx, item)
}

// FilteringItemProcessor drops items for which keep returns false.
type FilteringItemProcessor[T any] struct {
	keep func(T) bool
}

// NewFilteringItemProcessor creates a processor that keeps items matching keep.
func NewFilteringItemProcessor[T any](keep func(T) bool) *FilteringItemProcessor[T] {
	return &FilteringItemProcessor[T]{keep: keep}
}

// Process returns port.ErrFilterItem for rejected items.
func (p *FilteringItemProcessor[T]) Process(ctx context.Context, item T) (T, error) {
	if !p.keep(item) {
		var zero T
		return zero, port.ErrFilterItem
	}
	return item, nil
}

type composite[A, B, C any] struct {
	first  port.ItemProcessor[A, B]
	second port.ItemProcessor[B, C]
}

// Compose chains two processors. An error or filter from first skips second.
func Compose[A, B, C any](first port.ItemProcessor[A, B], second port.ItemProcessor[B, C]) port.ItemProcessor[A, C] {
	return composite[A, B, C]{first: first, second: second}
}

func (c composite[A, B, C]) Process(ctx context.Context, item A) (C, error) {
	mid, err := c.first.Process(ctx, item)
	if err != nil {
		var zero C
		return zero, err
	}
	return c.second.Process(ctx, mid)
}
