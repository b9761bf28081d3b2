package item

import (
	"database/sql"
	"fmt"
	"strings"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	metrics "github.com/tigerroll/surfbatch/pkg/batch/core/metrics"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/skip"
)

// FailurePolicy selects what a chunk step does after a chunk was rolled back.
type FailurePolicy string

const (
	// FailurePolicyAbortStep stops reading and fails the step. It is the default.
	FailurePolicyAbortStep FailurePolicy = "ABORT_STEP"
	// FailurePolicySkipChunk records the failure and continues with the next chunk.
	FailurePolicySkipChunk FailurePolicy = "SKIP_CHUNK"
)

// ParseFailurePolicy parses a configured policy name. Empty means ABORT_STEP.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case "":
		return FailurePolicyAbortStep, nil
	case FailurePolicyAbortStep, FailurePolicySkipChunk:
		return p, nil
	}
	return "", fmt.Errorf("unknown chunk failure policy %q", s)
}

type chunkSettings struct {
	txManager      tx.TransactionManager
	txOptions      *sql.TxOptions
	failurePolicy  FailurePolicy
	skipPolicy     skip.SkipPolicy
	chunkListeners []port.ChunkListener
	skipListeners  []port.SkipListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

func defaultChunkSettings() chunkSettings {
	return chunkSettings{
		txManager:      tx.NewResourcelessTransactionManager(),
		failurePolicy:  FailurePolicyAbortStep,
		skipPolicy:     skip.NeverSkipPolicy{},
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}
}

// ChunkOption configures a ChunkStep.
type ChunkOption func(*chunkSettings)

// WithTransactionManager sets the manager that opens one transaction per chunk.
func WithTransactionManager(m tx.TransactionManager) ChunkOption {
	return func(s *chunkSettings) { s.txManager = m }
}

// WithTransactionOptions sets the isolation level and read-only flag of chunk transactions.
func WithTransactionOptions(opts *sql.TxOptions) ChunkOption {
	return func(s *chunkSettings) { s.txOptions = opts }
}

// WithFailurePolicy sets the chunk failure policy.
func WithFailurePolicy(p FailurePolicy) ChunkOption {
	return func(s *chunkSettings) { s.failurePolicy = p }
}

// WithSkipPolicy allows transform failures to drop single items instead of failing the chunk.
func WithSkipPolicy(p skip.SkipPolicy) ChunkOption {
	return func(s *chunkSettings) { s.skipPolicy = p }
}

// WithChunkListeners registers chunk listeners.
func WithChunkListeners(l ...port.ChunkListener) ChunkOption {
	return func(s *chunkSettings) { s.chunkListeners = append(s.chunkListeners, l...) }
}

// WithSkipListeners registers skip listeners.
func WithSkipListeners(l ...port.SkipListener) ChunkOption {
	return func(s *chunkSettings) { s.skipListeners = append(s.skipListeners, l...) }
}

// WithMetricRecorder sets the recorder for chunk metrics.
func WithMetricRecorder(r metrics.MetricRecorder) ChunkOption {
	return func(s *chunkSettings) { s.metricRecorder = r }
}

// WithTracer sets the tracer for chunk events.
func WithTracer(t metrics.Tracer) ChunkOption {
	return func(s *chunkSettings) { s.tracer = t }
}
