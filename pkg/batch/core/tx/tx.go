// Package tx defines the transaction boundary the chunk orchestrator wraps around
// each chunk's write.
package tx

import (
	"context"
	"database/sql"
)

// TxExecutor defines the write operations a writer may run inside a chunk transaction.
type TxExecutor interface {
	// ExecuteUpdate runs a CREATE, UPDATE or DELETE of model against tableName.
	//
	// Parameters:
	//
	//	model: A struct, slice of structs or map holding the values to write.
	//	operation: "CREATE", "UPDATE" or "DELETE".
	//	tableName: The target table; empty means the model's own table.
	//	query: Conditions for UPDATE and DELETE.
	//
	// Returns:
	//
	//	The number of affected rows.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model, updating updateColumns when conflictColumns collide.
	// An empty updateColumns means "do nothing" on conflict.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
}

// Tx is an open transaction.
type Tx interface {
	TxExecutor
}

// TransactionManager begins and ends transactions.
type TransactionManager interface {
	// Begin starts a transaction. At most one *sql.TxOptions is honored.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits tx.
	Commit(tx Tx) error
	// Rollback rolls tx back.
	Rollback(tx Tx) error
}
