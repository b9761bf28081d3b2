package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage"
)

// Module contributes the local factory to the "storage_factories" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewFactory,
		fx.As(new(storageAdapter.Factory)),
		fx.ResultTags(`group:"storage_factories"`),
	)),
)
