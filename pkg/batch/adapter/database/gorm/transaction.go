package gorm

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/tigerroll/surfbatch/pkg/batch/adapter/database"
	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
)

// ErrForeignTransaction is returned when a Tx from another manager is committed or
// rolled back.
var ErrForeignTransaction = errors.New("transaction was not started by this manager")

// GormTxAdapter is an open GORM transaction.
type GormTxAdapter struct {
	executor
	done bool
}

var _ tx.Tx = (*GormTxAdapter)(nil)
var _ database.DBExecutor = (*GormTxAdapter)(nil)

// GetGormDB returns the transaction's *gorm.DB.
func (t *GormTxAdapter) GetGormDB() *gorm.DB {
	return t.db
}

// GormTransactionManager begins transactions on one GormDBAdapter.
type GormTransactionManager struct {
	conn *GormDBAdapter
}

var _ tx.TransactionManager = (*GormTransactionManager)(nil)

// NewGormTransactionManager creates a transaction manager for conn.
func NewGormTransactionManager(conn *GormDBAdapter) *GormTransactionManager {
	return &GormTransactionManager{conn: conn}
}

// Begin starts a transaction.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	var txOpts []*sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[:1]
	}
	gormTx := m.conn.db.WithContext(ctx).Begin(txOpts...)
	if gormTx.Error != nil {
		return nil, gormTx.Error
	}
	return &GormTxAdapter{executor: executor{db: gormTx}}, nil
}

// Commit commits t.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gt, err := m.own(t)
	if err != nil {
		return err
	}
	gt.done = true
	return gt.db.Commit().Error
}

// Rollback rolls t back.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gt, err := m.own(t)
	if err != nil {
		return err
	}
	gt.done = true
	return gt.db.Rollback().Error
}

func (m *GormTransactionManager) own(t tx.Tx) (*GormTxAdapter, error) {
	gt, ok := t.(*GormTxAdapter)
	if !ok {
		return nil, ErrForeignTransaction
	}
	if gt.done {
		return nil, sql.ErrTxDone
	}
	return gt, nil
}
