package storage

import (
	"context"

	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
)

// ProviderParams collects the storage configuration and every registered factory.
type ProviderParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    storageConfig.DatasourcesConfig
	Factories []Factory `group:"storage_factories"`
}

// NewProviderWithLifecycle creates a Provider that closes its connections on shutdown.
func NewProviderWithLifecycle(p ProviderParams) *Provider {
	provider := NewProvider(p.Config, p.Factories...)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error { return provider.CloseAll() },
	})
	return provider
}

// Module provides the storage Provider.
var Module = fx.Options(
	fx.Provide(NewProviderWithLifecycle),
)
