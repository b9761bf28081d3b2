// Package logging provides listeners that log job, step and chunk progress.
package logging

import (
	"context"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/serialization"
)

// MaskedValue replaces the value of a masked parameter in log output.
const MaskedValue = serialization.MaskValue

// MaskParameters renders params sorted by key, replacing the values of maskedKeys.
// Keys are matched case-insensitively.
func MaskParameters(params model.JobParameters, maskedKeys []string) string {
	return serialization.NewMaskSet(maskedKeys).FormatParameters(params.ToStringMap())
}

// --- Job Execution Listener ---

type LoggingJobListener struct {
	maskedKeys []string
}

func NewLoggingJobListener(maskedKeys []string) *LoggingJobListener {
	return &LoggingJobListener{maskedKeys: maskedKeys}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("Job '%s' starting. ExecutionID: %s, InstanceID: %s, Params: %s",
		jobExecution.JobName, jobExecution.ID, jobExecution.JobInstanceID, MaskParameters(jobExecution.Parameters, l.maskedKeys))
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if jobExecution.Status == model.StatusFailed {
		logger.Errorf("Job '%s' finished. Status: %s, ExitStatus: %s, Failures: %d",
			jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus, len(jobExecution.Failures))
		return
	}
	logger.Infof("Job '%s' finished. Status: %s, ExitStatus: %s", jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus)
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct{}

func NewLoggingStepListener() *LoggingStepListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("Step '%s' starting. ID: %s", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("Step '%s' finished. Status: %s, ExitStatus: %s, Read: %d, Filter: %d, Write: %d, Commit: %d, Rollback: %d",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus,
		stepExecution.ReadCount, stepExecution.FilterCount, stepExecution.WriteCount,
		stepExecution.CommitCount, stepExecution.RollbackCount)
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)

// --- Chunk Listener ---

type LoggingChunkListener struct{}

func NewLoggingChunkListener() *LoggingChunkListener {
	return &LoggingChunkListener{}
}

func (l *LoggingChunkListener) BeforeChunk(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Debugf("Step '%s': chunk starting.", stepExecution.StepName)
}

func (l *LoggingChunkListener) AfterChunk(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Debugf("Step '%s': chunk committed. Read: %d, Write: %d", stepExecution.StepName, stepExecution.ReadCount, stepExecution.WriteCount)
}

func (l *LoggingChunkListener) AfterChunkError(ctx context.Context, stepExecution *model.StepExecution, err error) {
	logger.Warnf("Step '%s': chunk rolled back: %v", stepExecution.StepName, err)
}

var _ port.ChunkListener = (*LoggingChunkListener)(nil)

// --- Skip Listener ---

type LoggingSkipListener struct{}

func NewLoggingSkipListener() *LoggingSkipListener {
	return &LoggingSkipListener{}
}

func (l *LoggingSkipListener) OnSkipInProcess(ctx context.Context, item any, err error) {
	logger.Warnf("Skipping item %+v: %v", item, err)
}

func (l *LoggingSkipListener) OnSkipChunk(ctx context.Context, items []any, err error) {
	logger.Warnf("Skipping chunk of %d items: %v", len(items), err)
}

var _ port.SkipListener = (*LoggingSkipListener)(nil)
