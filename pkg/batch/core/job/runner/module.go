package runner

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
)

// Module provides SimpleJobRunner as the port.JobRunner.
var Module = fx.Provide(fx.Annotate(
	NewSimpleJobRunner,
	fx.As(new(port.JobRunner)),
))
