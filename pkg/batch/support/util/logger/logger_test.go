package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

func TestSetLogLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure("console", zapcore.AddSync(&buf))
	t.Cleanup(func() {
		logger.Configure("console", nil)
		logger.SetLogLevel("INFO")
	})

	logger.SetLogLevel("WARN")
	assert.Equal(t, logger.LevelWarn, logger.GetLogLevel())

	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
}

func TestConfigure_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure("json", zapcore.AddSync(&buf))
	t.Cleanup(func() { logger.Configure("console", nil) })
	logger.SetLogLevel("DEBUG")
	t.Cleanup(func() { logger.SetLogLevel("INFO") })

	logger.Debugf("step '%s' started", "step1")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "step 'step1' started", entry["msg"])
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	logger.SetLogLevel("verbose")
	assert.Equal(t, logger.LevelInfo, logger.GetLogLevel())
}
