// Package port defines the interfaces between the batch engine and the code it runs:
// job and step definitions, item readers, processors and writers, tasklets, executors
// and listeners.
package port

import (
	"context"
	"errors"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
)

// ErrFilterItem is returned by an ItemProcessor to drop an item from its chunk.
// A filtered item is counted but is not an error.
var ErrFilterItem = errors.New("item filtered")

// Job is an immutable, named, ordered sequence of Steps.
type Job interface {
	// Name returns the job name, part of JobInstance identity.
	Name() string
	// Steps returns the steps in execution order.
	Steps() []Step
	// Incrementer returns the RunIdentity applied to every launch, or nil.
	Incrementer() JobParametersIncrementer
	// ValidateParameters rejects parameter sets the job cannot run with.
	ValidateParameters(params model.JobParameters) error
	// Listeners returns the job-level listeners.
	Listeners() []JobExecutionListener
}

// Step is one stage of a Job.
type Step interface {
	// Name returns the step name.
	Name() string
	// Execute runs the step body for stepExecution, which the StepExecutor has already
	// moved to STARTED. It updates counters on stepExecution and may mark it STOPPED
	// when jobExecution has a pending stop request. A returned error fails the step.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
}

// StepExecutor runs a single step to a terminal status.
type StepExecutor interface {
	// ExecuteStep drives stepExecution through STARTING -> STARTED -> terminal,
	// persisting each transition. It never returns with stepExecution non-terminal.
	//
	// Returns:
	//
	//	The error that failed the step, or nil when the step completed or stopped.
	ExecuteStep(ctx context.Context, step Step, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
}

// JobRunner runs the steps of a Job for an already created JobExecution.
type JobRunner interface {
	// Run executes job for jobExecution and leaves it in a terminal status.
	Run(ctx context.Context, job Job, jobExecution *model.JobExecution)
}

// JobParametersIncrementer derives the parameters of the next launch. It is how a
// job opts into "always rerun" (unique token) or "at most once per period" (date).
type JobParametersIncrementer interface {
	GetNext(params model.JobParameters) model.JobParameters
}

// ItemReader is the ItemSource of a chunk step.
// Read returns io.EOF, and no item, once the data is exhausted.
type ItemReader[T any] interface {
	// Open prepares the source before the first Read.
	Open(ctx context.Context) error
	// Read returns the next item or io.EOF.
	Read(ctx context.Context) (T, error)
	// Close releases the source.
	Close(ctx context.Context) error
}

// ItemProcessor is the optional transform stage of a chunk step.
// Returning ErrFilterItem drops the item.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (O, error)
}

// ItemWriter is the ItemSink of a chunk step. Write receives one chunk inside the
// chunk transaction; effects outside tx are not rolled back when the chunk fails.
type ItemWriter[T any] interface {
	// Open prepares the sink before the first chunk.
	Open(ctx context.Context) error
	// Write writes one chunk.
	Write(ctx context.Context, tx tx.Tx, items []T) error
	// Close flushes and releases the sink.
	Close(ctx context.Context) error
}

// RepeatStatus tells the tasklet step whether to invoke the tasklet again.
type RepeatStatus int

const (
	// RepeatStatusContinuable asks for another invocation.
	RepeatStatusContinuable RepeatStatus = iota
	// RepeatStatusFinished ends the step.
	RepeatStatusFinished
)

func (s RepeatStatus) String() string {
	if s == RepeatStatusFinished {
		return "FINISHED"
	}
	return "CONTINUABLE"
}

// Tasklet is a single unit of work invoked until it reports RepeatStatusFinished.
// The step execution carries the run's JobExecution and JobParameters.
type Tasklet interface {
	Execute(ctx context.Context, stepExecution *model.StepExecution) (RepeatStatus, error)
}

// TaskletFunc adapts a function to Tasklet.
type TaskletFunc func(ctx context.Context, stepExecution *model.StepExecution) (RepeatStatus, error)

// Execute calls f.
func (f TaskletFunc) Execute(ctx context.Context, stepExecution *model.StepExecution) (RepeatStatus, error) {
	return f(ctx, stepExecution)
}

// JobExecutionListener observes job executions.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// StepExecutionListener observes step executions.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// ChunkListener observes chunk boundaries of a chunk step.
type ChunkListener interface {
	BeforeChunk(ctx context.Context, stepExecution *model.StepExecution)
	AfterChunk(ctx context.Context, stepExecution *model.StepExecution)
	// AfterChunkError is called after the failed chunk was rolled back.
	AfterChunkError(ctx context.Context, stepExecution *model.StepExecution, err error)
}

// SkipListener observes items dropped by a skip policy.
type SkipListener interface {
	OnSkipInProcess(ctx context.Context, item any, err error)
	// OnSkipChunk is called for every chunk abandoned under the SKIP_CHUNK policy.
	OnSkipChunk(ctx context.Context, items []any, err error)
}
