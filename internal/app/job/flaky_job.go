package job

import (
	"time"

	"github.com/tigerroll/surfbatch/pkg/batch/component/tasklet/generic"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	corejob "github.com/tigerroll/surfbatch/pkg/batch/core/job"
	"github.com/tigerroll/surfbatch/pkg/batch/core/support/incrementer"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/factory"
	"github.com/tigerroll/surfbatch/pkg/batch/engine/step/retry"
	taskletstep "github.com/tigerroll/surfbatch/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

const (
	FlakyJobName  = "flakyJob"
	FlakyStepName = "flakyStep"
)

// FlakyRetryProperties binds the retry settings of surfbatch.jobs.flakyJob. The
// failure settings are bound by generic.RandomFailProperties.
type FlakyRetryProperties struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	RetryableErrors []string      `yaml:"retryable_errors"`
}

// NewFlakyJob builds flakyJob: a tasklet failing on purpose, retried in place
// according to the properties. Every launch is a new instance.
func NewFlakyJob(f factory.StepFactory, properties map[string]interface{}, listeners ...port.JobExecutionListener) (port.Job, error) {
	tasklet, err := generic.NewRandomFailTasklet(FlakyStepName, properties)
	if err != nil {
		return nil, err
	}
	props := FlakyRetryProperties{
		MaxAttempts:     1,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		RetryableErrors: []string{"random failure"},
	}
	if err := configbinder.BindProperties(properties, &props); err != nil {
		return nil, exception.NewInvalidDefinition(FlakyJobName, "%v", err)
	}
	policy := retry.NewSimpleRetryPolicy(props.MaxAttempts, props.InitialInterval, props.MaxInterval, props.RetryableErrors...)
	s, err := f.CreateTaskletStep(FlakyStepName, tasklet, taskletstep.WithRetryPolicy(policy))
	if err != nil {
		return nil, err
	}
	return corejob.NewSimpleJob(FlakyJobName, []port.Step{s},
		corejob.WithIncrementer(incrementer.NewTimestampIncrementer(RunTimestampKey, nil)),
		corejob.WithListeners(listeners...),
	)
}
