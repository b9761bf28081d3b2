// Package generic provides general-purpose tasklets.
package generic

import (
	"context"
	"math/rand"
	"sync"
	"time"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// RandomFailProperties configures a RandomFailTasklet.
type RandomFailProperties struct {
	// FailRate is the probability of failure (0.0 - 1.0).
	FailRate float64 `yaml:"fail_rate"`
	// FailCount fails the first FailCount runs and succeeds afterwards. When positive,
	// FailRate is ignored.
	FailCount int `yaml:"fail_count"`
}

// RandomFailTasklet is a [port.Tasklet] that fails with a configured probability,
// or for a fixed number of runs. It exercises failure and relaunch handling.
type RandomFailTasklet struct {
	id    string
	props RandomFailProperties

	mu         sync.Mutex
	rnd        *rand.Rand
	currentRun int
}

// NewRandomFailTasklet creates a [RandomFailTasklet] from properties, usually the
// job's entry under surfbatch.jobs.
func NewRandomFailTasklet(id string, properties map[string]interface{}) (*RandomFailTasklet, error) {
	props := RandomFailProperties{FailRate: 0.5}
	if err := configbinder.BindProperties(properties, &props); err != nil {
		return nil, exception.NewInvalidDefinition(id, "%v", err)
	}
	if props.FailRate < 0 || props.FailRate > 1 {
		return nil, exception.NewInvalidDefinition(id, "fail_rate must be within [0, 1], got %v", props.FailRate)
	}
	return &RandomFailTasklet{
		id:    id,
		props: props,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Execute fails or finishes. It never asks to be invoked again.
func (t *RandomFailTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (port.RepeatStatus, error) {
	t.mu.Lock()
	t.currentRun++
	run := t.currentRun
	var shouldFail bool
	if t.props.FailCount > 0 {
		shouldFail = run <= t.props.FailCount
	} else {
		shouldFail = t.rnd.Float64() < t.props.FailRate
	}
	t.mu.Unlock()

	if shouldFail {
		logger.Errorf("RandomFailTasklet '%s' (Run %d): Intentionally failing (Rate: %.2f, Count: %d).", t.id, run, t.props.FailRate, t.props.FailCount)
		return port.RepeatStatusFinished, exception.NewBatchErrorf(t.id, "random failure occurred on run %d", run)
	}

	logger.Infof("RandomFailTasklet '%s' (Run %d): Completed successfully.", t.id, run)
	return port.RepeatStatusFinished, nil
}

// Verify that [RandomFailTasklet] satisfies the [port.Tasklet] interface.
var _ port.Tasklet = (*RandomFailTasklet)(nil)
