package tx

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
)

// ErrNoTransactionalResource is returned by a resourceless Tx when a writer tries to
// run database operations through it.
var ErrNoTransactionalResource = errors.New("transaction has no transactional resource")

// ResourcelessTransactionManager provides chunk boundaries for steps whose writers
// manage their own side effects (files, object storage, stdout). Nothing is rolled
// back on failure.
type ResourcelessTransactionManager struct {
	begun      atomic.Int64
	committed  atomic.Int64
	rolledBack atomic.Int64
}

// NewResourcelessTransactionManager creates a ResourcelessTransactionManager.
func NewResourcelessTransactionManager() *ResourcelessTransactionManager {
	return &ResourcelessTransactionManager{}
}

type resourcelessTx struct {
	done bool
}

func (t *resourcelessTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return 0, ErrNoTransactionalResource
}

func (t *resourcelessTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return 0, ErrNoTransactionalResource
}

// Begin starts a transaction that only tracks its own completion.
func (m *ResourcelessTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.begun.Add(1)
	return &resourcelessTx{}, nil
}

// Commit marks tx as committed.
func (m *ResourcelessTransactionManager) Commit(t Tx) error {
	rt, ok := t.(*resourcelessTx)
	if !ok || rt.done {
		return sql.ErrTxDone
	}
	rt.done = true
	m.committed.Add(1)
	return nil
}

// Rollback marks tx as rolled back.
func (m *ResourcelessTransactionManager) Rollback(t Tx) error {
	rt, ok := t.(*resourcelessTx)
	if !ok || rt.done {
		return sql.ErrTxDone
	}
	rt.done = true
	m.rolledBack.Add(1)
	return nil
}

// Stats returns the number of begun, committed and rolled back transactions.
func (m *ResourcelessTransactionManager) Stats() (begun, committed, rolledBack int64) {
	return m.begun.Load(), m.committed.Load(), m.rolledBack.Load()
}
