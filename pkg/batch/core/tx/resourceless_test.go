package tx_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfbatch/pkg/batch/core/tx"
)

func TestResourcelessTransactionManager(t *testing.T) {
	ctx := context.Background()
	m := tx.NewResourcelessTransactionManager()

	first, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Commit(first))
	assert.ErrorIs(t, m.Commit(first), sql.ErrTxDone)

	second, err := m.Begin(ctx)
	require.NoError(t, err)
	_, err = second.ExecuteUpdate(ctx, struct{}{}, "CREATE", "t", nil)
	assert.ErrorIs(t, err, tx.ErrNoTransactionalResource)
	require.NoError(t, m.Rollback(second))

	begun, committed, rolledBack := m.Stats()
	assert.Equal(t, int64(2), begun)
	assert.Equal(t, int64(1), committed)
	assert.Equal(t, int64(1), rolledBack)
}

func TestResourcelessTransactionManager_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tx.NewResourcelessTransactionManager().Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
