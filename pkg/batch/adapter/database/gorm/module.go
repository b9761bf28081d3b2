package gorm

import (
	"context"

	"go.uber.org/fx"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
)

// NewProviderWithLifecycle creates a Provider whose connections close on shutdown.
func NewProviderWithLifecycle(lc fx.Lifecycle, cfg dbconfig.DatasourcesConfig) *Provider {
	p := NewProvider(cfg)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.CloseAll()
		},
	})
	return p
}

// Module provides the GORM connection Provider. Dialects are registered by importing
// the sqlite, mysql and postgres subpackages.
var Module = fx.Options(
	fx.Provide(NewProviderWithLifecycle),
)
