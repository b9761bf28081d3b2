// Package job defines the application's job catalogue.
package job

import (
	"io"

	"github.com/tigerroll/surfbatch/internal/app/step"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	corejob "github.com/tigerroll/surfbatch/pkg/batch/core/job"
	"github.com/tigerroll/surfbatch/pkg/batch/core/support/incrementer"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/factory"
)

const (
	// HelloJobName is the name of the hello job.
	HelloJobName = "job"
	// HelloStepName is its only step.
	HelloStepName = "step1"
	// RunIDKey is the parameter set to a fresh UUID on every launch of the hello job.
	RunIDKey = "uuid"
)

// NewHelloJob builds the hello job: one tasklet step printing a greeting. Every
// launch gets a new uuid parameter and therefore a new JobInstance.
func NewHelloJob(f factory.StepFactory, properties map[string]interface{}, out io.Writer, listeners ...port.JobExecutionListener) (port.Job, error) {
	tasklet, err := step.NewHelloTasklet(properties, out)
	if err != nil {
		return nil, err
	}
	s, err := f.CreateTaskletStep(HelloStepName, tasklet)
	if err != nil {
		return nil, err
	}
	return corejob.NewSimpleJob(HelloJobName, []port.Step{s},
		corejob.WithIncrementer(incrementer.NewUUIDIncrementer(RunIDKey)),
		corejob.WithListeners(listeners...),
	)
}
