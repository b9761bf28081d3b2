// Package item implements chunk-oriented steps: items are read one at a time,
// grouped into chunks of a fixed size, transformed, and written one chunk per
// transaction.
//
// The transaction boundary only covers what the writer does through the tx.Tx it
// receives. Effects a writer produces elsewhere (stdout, files, object storage)
// are not undone when a chunk rolls back; such writers need their own idempotency.
package item

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// ReaderFactory builds the reader used by a single step execution.
type ReaderFactory[I any] func() (port.ItemReader[I], error)

// WriterFactory builds the writer used by a single step execution.
type WriterFactory[O any] func() (port.ItemWriter[O], error)

// ChunkStep is a Step that reads items of type I, transforms them to O and writes
// them in chunks. Its definition is immutable and it may be executed any number of times.
//
// A step built from factories gets a fresh reader and writer per execution, so
// executions of distinct job instances run concurrently. A step built from reader
// and writer instances runs one execution at a time; the processor is always shared.
type ChunkStep[I, O any] struct {
	name      string
	newReader ReaderFactory[I]
	processor port.ItemProcessor[I, O]
	newWriter WriterFactory[O]
	chunkSize int
	// exclusive serializes executions sharing one reader and writer; nil for factory steps.
	exclusive *sync.Mutex
	chunkSettings
}

var _ port.Step = (*ChunkStep[any, any])(nil)

// NewChunkStep creates a chunk step with a transform stage over shared reader and
// writer instances. It returns an ErrInvalidDefinition error when chunkSize <= 0 or
// a collaborator is nil.
func NewChunkStep[I, O any](
	name string,
	reader port.ItemReader[I],
	processor port.ItemProcessor[I, O],
	writer port.ItemWriter[O],
	chunkSize int,
	opts ...ChunkOption,
) (*ChunkStep[I, O], error) {
	const op = "NewChunkStep"

	switch {
	case reader == nil:
		return nil, exception.NewInvalidDefinition(op, "step '%s': reader is required", name)
	case writer == nil:
		return nil, exception.NewInvalidDefinition(op, "step '%s': writer is required", name)
	}
	s, err := newChunkStep(op, name,
		func() (port.ItemReader[I], error) { return reader, nil },
		processor,
		func() (port.ItemWriter[O], error) { return writer, nil },
		chunkSize, opts...)
	if err != nil {
		return nil, err
	}
	s.exclusive = &sync.Mutex{}
	return s, nil
}

// NewChunkStepWithFactories creates a chunk step that builds its reader and writer
// for every execution.
func NewChunkStepWithFactories[I, O any](
	name string,
	newReader ReaderFactory[I],
	processor port.ItemProcessor[I, O],
	newWriter WriterFactory[O],
	chunkSize int,
	opts ...ChunkOption,
) (*ChunkStep[I, O], error) {
	return newChunkStep("NewChunkStepWithFactories", name, newReader, processor, newWriter, chunkSize, opts...)
}

func newChunkStep[I, O any](
	op string,
	name string,
	newReader ReaderFactory[I],
	processor port.ItemProcessor[I, O],
	newWriter WriterFactory[O],
	chunkSize int,
	opts ...ChunkOption,
) (*ChunkStep[I, O], error) {
	switch {
	case name == "":
		return nil, exception.NewInvalidDefinition(op, "step name is required")
	case chunkSize <= 0:
		return nil, exception.NewInvalidDefinition(op, "step '%s': chunk size must be positive, got %d", name, chunkSize)
	case newReader == nil:
		return nil, exception.NewInvalidDefinition(op, "step '%s': reader is required", name)
	case processor == nil:
		return nil, exception.NewInvalidDefinition(op, "step '%s': processor is required", name)
	case newWriter == nil:
		return nil, exception.NewInvalidDefinition(op, "step '%s': writer is required", name)
	}

	settings := defaultChunkSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	policy, err := ParseFailurePolicy(string(settings.failurePolicy))
	if err != nil {
		return nil, exception.NewInvalidDefinition(op, "step '%s': %v", name, err)
	}
	settings.failurePolicy = policy
	if settings.txManager == nil {
		return nil, exception.NewInvalidDefinition(op, "step '%s': transaction manager is required", name)
	}

	return &ChunkStep[I, O]{
		name:          name,
		newReader:     newReader,
		processor:     processor,
		newWriter:     newWriter,
		chunkSize:     chunkSize,
		chunkSettings: settings,
	}, nil
}

// NewSimpleChunkStep creates a chunk step without a transform stage.
func NewSimpleChunkStep[T any](name string, reader port.ItemReader[T], writer port.ItemWriter[T], chunkSize int, opts ...ChunkOption) (*ChunkStep[T, T], error) {
	return NewChunkStep[T, T](name, reader, passThrough[T]{}, writer, chunkSize, opts...)
}

// NewSimpleChunkStepWithFactories is NewChunkStepWithFactories without a transform stage.
func NewSimpleChunkStepWithFactories[T any](name string, newReader ReaderFactory[T], newWriter WriterFactory[T], chunkSize int, opts ...ChunkOption) (*ChunkStep[T, T], error) {
	return NewChunkStepWithFactories[T, T](name, newReader, passThrough[T]{}, newWriter, chunkSize, opts...)
}

type passThrough[T any] struct{}

func (passThrough[T]) Process(_ context.Context, item T) (T, error) { return item, nil }

// Name returns the step name.
func (s *ChunkStep[I, O]) Name() string { return s.name }

// ChunkSize returns the configured number of items per chunk.
func (s *ChunkStep[I, O]) ChunkSize() int { return s.chunkSize }

// FailurePolicy returns the configured chunk failure policy.
func (s *ChunkStep[I, O]) FailurePolicy() FailurePolicy { return s.failurePolicy }

// Execute runs the read-transform-write loop until the reader reports io.EOF, a chunk
// fails under ABORT_STEP, or a stop is requested on jobExecution.
func (s *ChunkStep[I, O]) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	logger.Infof("ChunkStep '%s' executing (chunk size %d, policy %s).", s.name, s.chunkSize, s.failurePolicy)

	if s.exclusive != nil {
		s.exclusive.Lock()
		defer s.exclusive.Unlock()
	}

	reader, err := s.newReader()
	if err != nil {
		return &exception.ReadError{StepName: s.name, ItemIndex: stepExecution.ReadCount, Err: fmt.Errorf("create reader: %w", err)}
	}
	writer, err := s.newWriter()
	if err != nil {
		return &exception.WriteError{StepName: s.name, Err: fmt.Errorf("create writer: %w", err)}
	}

	if err := reader.Open(ctx); err != nil {
		return &exception.ReadError{StepName: s.name, ItemIndex: stepExecution.ReadCount, Err: fmt.Errorf("open reader: %w", err)}
	}
	defer func() {
		if cerr := reader.Close(ctx); cerr != nil {
			err = appendError(err, &exception.ReadError{StepName: s.name, ItemIndex: stepExecution.ReadCount, Err: fmt.Errorf("close reader: %w", cerr)})
		}
	}()

	if err := writer.Open(ctx); err != nil {
		return &exception.WriteError{StepName: s.name, Err: fmt.Errorf("open writer: %w", err)}
	}
	defer func() {
		if cerr := writer.Close(ctx); cerr != nil {
			err = appendError(err, &exception.WriteError{StepName: s.name, Err: fmt.Errorf("close writer: %w", cerr)})
		}
	}()

	chunkIndex := 0
	for {
		if jobExecution.IsStopRequested() {
			logger.Infof("ChunkStep '%s': stop requested, stopping after %d chunks.", s.name, chunkIndex)
			if serr := stepExecution.MarkAsStopped(); serr != nil {
				return serr
			}
			return nil
		}

		items, eof, rerr := s.readChunk(ctx, reader, stepExecution)
		if rerr != nil {
			logger.Errorf("ChunkStep '%s': %v", s.name, rerr)
			s.tracer.RecordError(ctx, "reader", rerr)
			return rerr
		}

		if len(items) > 0 {
			chunkIndex++
			if werr := s.processChunk(ctx, writer, stepExecution, chunkIndex, items); werr != nil {
				if s.failurePolicy != FailurePolicySkipChunk {
					return werr
				}
				s.skipChunk(ctx, stepExecution, items, werr)
			}
		}

		if eof {
			logger.Infof("ChunkStep '%s' finished: %s", s.name, stepExecution)
			return nil
		}
	}
}

// readChunk reads up to chunkSize items. eof is true once the reader reported io.EOF.
func (s *ChunkStep[I, O]) readChunk(ctx context.Context, reader port.ItemReader[I], stepExecution *model.StepExecution) (items []I, eof bool, err error) {
	items = make([]I, 0, s.chunkSize)
	defer func() {
		if len(items) > 0 {
			s.metricRecorder.RecordItemRead(ctx, s.name, len(items))
		}
	}()

	for len(items) < s.chunkSize {
		item, rerr := reader.Read(ctx)
		if errors.Is(rerr, io.EOF) {
			return items, true, nil
		}
		if rerr != nil {
			return items, false, &exception.ReadError{StepName: s.name, ItemIndex: stepExecution.ReadCount, Err: rerr}
		}
		stepExecution.ReadCount++
		items = append(items, item)
	}
	return items, false, nil
}

// processChunk transforms and writes one chunk inside its own transaction.
// Counters are applied to stepExecution only when the chunk commits.
func (s *ChunkStep[I, O]) processChunk(ctx context.Context, writer port.ItemWriter[O], stepExecution *model.StepExecution, chunkIndex int, items []I) (err error) {
	for _, l := range s.chunkListeners {
		l.BeforeChunk(ctx, stepExecution)
	}

	t, err := s.txManager.Begin(ctx, s.txOptions)
	if err != nil {
		werr := &exception.WriteError{StepName: s.name, Chunk: chunkIndex, Items: len(items), Err: fmt.Errorf("begin transaction: %w", err)}
		stepExecution.AddFailureException(werr)
		return werr
	}
	defer func() {
		if r := recover(); r != nil {
			err = s.rollback(ctx, t, stepExecution, chunkIndex, len(items), fmt.Errorf("panic in chunk: %v", r))
		}
	}()

	outputs := make([]O, 0, len(items))
	var filtered int64
	var skipped []error
	for _, in := range items {
		out, perr := s.processor.Process(ctx, in)
		if errors.Is(perr, port.ErrFilterItem) {
			filtered++
			continue
		}
		if perr != nil {
			terr := &exception.TransformError{StepName: s.name, Item: in, Err: perr}
			if s.skipPolicy.ShouldSkip(perr, stepExecution.ProcessSkipCount+int64(len(skipped))) {
				logger.Warnf("ChunkStep '%s': skipping item in chunk %d: %v", s.name, chunkIndex, perr)
				skipped = append(skipped, terr)
				for _, l := range s.skipListeners {
					l.OnSkipInProcess(ctx, in, perr)
				}
				continue
			}
			return s.rollback(ctx, t, stepExecution, chunkIndex, len(items), terr)
		}
		outputs = append(outputs, out)
	}

	if len(outputs) > 0 {
		if werr := writer.Write(ctx, t, outputs); werr != nil {
			return s.rollback(ctx, t, stepExecution, chunkIndex, len(items), werr)
		}
	}

	if cerr := s.txManager.Commit(t); cerr != nil {
		return s.rollback(ctx, t, stepExecution, chunkIndex, len(items), fmt.Errorf("commit: %w", cerr))
	}

	stepExecution.CommitCount++
	stepExecution.WriteCount += int64(len(outputs))
	stepExecution.FilterCount += filtered
	stepExecution.ProcessSkipCount += int64(len(skipped))
	for _, serr := range skipped {
		stepExecution.AddFailureException(serr)
	}

	s.metricRecorder.RecordChunkCommit(ctx, s.name, len(outputs))
	s.metricRecorder.RecordItemWrite(ctx, s.name, len(outputs))
	if filtered > 0 {
		s.metricRecorder.RecordItemFilter(ctx, s.name, int(filtered))
	}
	if len(skipped) > 0 {
		s.metricRecorder.RecordItemSkip(ctx, s.name, "process", len(skipped))
	}
	s.tracer.RecordEvent(ctx, "chunk.commit", map[string]interface{}{
		"step.name":   s.name,
		"chunk.index": chunkIndex,
		"chunk.items": len(outputs),
	})
	logger.Debugf("ChunkStep '%s': chunk %d committed (%d written, %d filtered).", s.name, chunkIndex, len(outputs), filtered)

	for _, l := range s.chunkListeners {
		l.AfterChunk(ctx, stepExecution)
	}
	return nil
}

// rollback undoes the chunk transaction and returns the WriteError describing the failure.
func (s *ChunkStep[I, O]) rollback(ctx context.Context, t tx.Tx, stepExecution *model.StepExecution, chunkIndex, size int, cause error) error {
	if rbErr := s.txManager.Rollback(t); rbErr != nil {
		logger.Errorf("ChunkStep '%s': rollback of chunk %d failed: %v", s.name, chunkIndex, rbErr)
	}
	stepExecution.RollbackCount++

	werr := &exception.WriteError{StepName: s.name, Chunk: chunkIndex, Items: size, Err: cause}
	stepExecution.AddFailureException(werr)
	logger.Errorf("ChunkStep '%s': chunk %d rolled back: %v", s.name, chunkIndex, cause)

	s.metricRecorder.RecordChunkRollback(ctx, s.name)
	s.tracer.RecordError(ctx, "writer", werr)
	for _, l := range s.chunkListeners {
		l.AfterChunkError(ctx, stepExecution, werr)
	}
	return werr
}

func (s *ChunkStep[I, O]) skipChunk(ctx context.Context, stepExecution *model.StepExecution, items []I, cause error) {
	stepExecution.WriteSkipCount += int64(len(items))
	logger.Warnf("ChunkStep '%s': skipping chunk of %d items under %s policy.", s.name, len(items), FailurePolicySkipChunk)
	s.metricRecorder.RecordItemSkip(ctx, s.name, "chunk", len(items))

	if len(s.skipListeners) == 0 {
		return
	}
	skippedItems := make([]any, len(items))
	for i, it := range items {
		skippedItems[i] = it
	}
	for _, l := range s.skipListeners {
		l.OnSkipChunk(ctx, skippedItems, cause)
	}
}

func appendError(err, next error) error {
	if err == nil {
		return next
	}
	return multierror.Append(err, next)
}
