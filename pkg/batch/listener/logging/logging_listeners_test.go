package logging_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/listener/logging"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

func TestMaskParameters(t *testing.T) {
	params := model.NewJobParameters().
		WithString("user", "alice").
		WithString("Password", "hunter2").
		WithLong("run.id", 3)

	got := logging.MaskParameters(params, []string{"password"})

	assert.Equal(t, "{Password=********, run.id=3, user=alice}", got)
	assert.NotContains(t, got, "hunter2")
}

func TestLoggingJobListener_MasksParametersInLog(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure("console", zapcore.AddSync(&buf))
	t.Cleanup(func() { logger.Configure("console", nil) })

	instance := model.NewJobInstance("importJob", model.NewJobParameters().WithString("api_key", "s3cr3t"))
	je := model.NewJobExecution(instance)
	l := logging.NewLoggingJobListener([]string{"api_key"})

	l.BeforeJob(context.Background(), je)
	require.NoError(t, je.MarkAsStarted())
	require.NoError(t, je.MarkAsFailed(errors.New("boom")))
	l.AfterJob(context.Background(), je)

	out := buf.String()
	assert.Contains(t, out, "api_key=********")
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, "Status: FAILED")
}
