// Package step provides the tasklets, mappers and processors of the application jobs.
package step

import (
	"context"
	"fmt"
	"io"
	"os"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/core/support/expression"
	configbinder "github.com/tigerroll/surfbatch/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// DefaultHelloMessage greets with the run's uuid parameter.
const DefaultHelloMessage = "Hello, Spring Batch! your UUID is #{jobParameters['uuid']}"

// HelloTaskletConfig binds the properties of the hello job.
type HelloTaskletConfig struct {
	// Message may hold #{...} expressions, resolved on every run.
	Message string `yaml:"message"`
}

// HelloTasklet prints a message and finishes.
type HelloTasklet struct {
	config *HelloTaskletConfig
	out    io.Writer
}

var _ port.Tasklet = (*HelloTasklet)(nil)

// NewHelloTasklet binds properties onto a HelloTaskletConfig. A nil out prints to stdout.
func NewHelloTasklet(properties map[string]interface{}, out io.Writer) (*HelloTasklet, error) {
	taskletCfg := &HelloTaskletConfig{Message: DefaultHelloMessage}
	if err := configbinder.BindProperties(properties, taskletCfg); err != nil {
		return nil, exception.NewBatchError("hello_tasklet", "Failed to bind properties", err, false, false)
	}
	if taskletCfg.Message == "" {
		return nil, exception.NewInvalidDefinition("hello_tasklet", "message property is required")
	}
	if out == nil {
		out = os.Stdout
	}
	return &HelloTasklet{config: taskletCfg, out: out}, nil
}

// Execute prints the resolved message.
func (t *HelloTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (port.RepeatStatus, error) {
	msg, err := expression.Resolve(ctx, t.config.Message)
	if err != nil {
		return port.RepeatStatusFinished, err
	}
	logger.Debugf("HelloTasklet: resolved message '%s'", msg)
	if _, err := fmt.Fprintln(t.out, msg); err != nil {
		return port.RepeatStatusFinished, err
	}
	return port.RepeatStatusFinished, nil
}
