// Package gorm implements database connections and chunk transactions on GORM.
package gorm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/tigerroll/surfbatch/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/surfbatch/pkg/batch/core/adapter"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory for dbType.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// Provider opens named connections from a DatasourcesConfig and keeps them open
// until CloseAll.
type Provider struct {
	cfg         dbconfig.DatasourcesConfig
	connections map[string]*GormDBAdapter
	mu          sync.Mutex
}

var _ coreAdapter.ResourceProvider = (*Provider)(nil)

// NewProvider creates a Provider for cfg.
func NewProvider(cfg dbconfig.DatasourcesConfig) *Provider {
	return &Provider{cfg: cfg, connections: make(map[string]*GormDBAdapter)}
}

// Type returns "database".
func (p *Provider) Type() string {
	return "database"
}

// Names returns the configured connection names in sorted order.
func (p *Provider) Names() []string {
	names := make([]string, 0, len(p.cfg))
	for name := range p.cfg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetConnection retrieves an existing connection or establishes a new one.
func (p *Provider) GetConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return p.getAdapter(ctx, name)
}

// TransactionManager returns a transaction manager bound to the named connection.
func (p *Provider) TransactionManager(ctx context.Context, name string) (*GormTransactionManager, error) {
	conn, err := p.getAdapter(ctx, name)
	if err != nil {
		return nil, err
	}
	return NewGormTransactionManager(conn), nil
}

func (p *Provider) getAdapter(ctx context.Context, name string) (*GormDBAdapter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	dbConfig, ok := p.cfg[name]
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found", name)
	}
	db, err := Open(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", name, err)
	}
	conn := NewGormDBAdapter(db, dbConfig, name)
	p.connections[name] = conn
	logger.Infof("Established new DB connection: %s (%s)", name, dbConfig.Type)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close connection '%s': %v", name, err)
			result = multierror.Append(result, fmt.Errorf("close %s: %w", name, err))
		}
		delete(p.connections, name)
	}
	return result
}

// Open establishes a GORM connection for dbConfig and applies its pool settings.
func Open(ctx context.Context, dbConfig dbconfig.DatabaseConfig) (*gorm.DB, error) {
	dialectorFactory, err := GetDialectorFactory(dbConfig.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := dialectorFactory(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", dbConfig.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(dbConfig.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if dbConfig.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.Pool.MaxOpenConns)
	}
	if dbConfig.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.Pool.MaxIdleConns)
	}
	if dbConfig.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dbConfig.Type, err)
	}
	return db, nil
}
