package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/surfbatch/pkg/batch/core/adapter"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// ProviderType is the resource kind served by Provider.
const ProviderType = "storage"

// Provider opens named storage connections on first use and caches them.
type Provider struct {
	cfg         storageConfig.DatasourcesConfig
	factories   map[string]Factory
	connections map[string]StorageConnection
	mu          sync.Mutex
}

var _ coreAdapter.ResourceProvider = (*Provider)(nil)

// NewProvider creates a Provider for the configured connections.
func NewProvider(cfg storageConfig.DatasourcesConfig, factories ...Factory) *Provider {
	p := &Provider{
		cfg:         cfg,
		factories:   make(map[string]Factory, len(factories)),
		connections: make(map[string]StorageConnection),
	}
	for _, f := range factories {
		p.factories[f.Type()] = f
	}
	return p
}

// GetConnection returns the connection named name, opening it if needed.
func (p *Provider) GetConnection(ctx context.Context, name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	cfg, ok := p.cfg[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	factory, ok := p.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("storage '%s': unsupported type '%s'", name, cfg.Type)
	}
	conn, err := factory.Open(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Infof("Opened storage connection '%s' (type: %s).", name, cfg.Type)
	return conn, nil
}

// Names returns the configured connection names, sorted.
func (p *Provider) Names() []string {
	names := make([]string, 0, len(p.cfg))
	for name := range p.cfg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every open connection.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close storage '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result
}

// Type returns ProviderType.
func (p *Provider) Type() string {
	return ProviderType
}
