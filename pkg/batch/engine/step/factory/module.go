package factory

import (
	"go.uber.org/fx"
)

// Module provides StepFactory related components to Fx.
var Module = fx.Options(
	fx.Provide(NewDefaultStepFactory),
	fx.Provide(func(f *DefaultStepFactory) StepFactory {
		return f
	}),
)
