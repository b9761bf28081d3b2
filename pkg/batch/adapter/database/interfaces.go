// Package database defines database connections used by the SQL job repository and
// by database-backed readers and writers.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/surfbatch/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/surfbatch/pkg/batch/core/adapter"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
)

// DBExecutor defines read and write operations on a connection or transaction.
type DBExecutor interface {
	tx.TxExecutor
	// ExecuteQuery loads rows matching query into target.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	// Count counts rows of model matching query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection is a named, open database.
type DBConnection interface {
	coreAdapter.ResourceConnection
	DBExecutor
	// Config returns the configuration the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB.
	GetSQLDB() (*sql.DB, error)
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
}
