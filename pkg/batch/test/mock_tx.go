package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	tx "github.com/tigerroll/surfbatch/pkg/batch/core/tx"
)

// MockTx is a testify mock of tx.Tx. Expectations are set on the model,
// operation and table arguments; the context and query are not recorded.
type MockTx struct {
	mock.Mock
}

var _ tx.Tx = (*MockTx)(nil)

// ExecuteUpdate records (model, operation, tableName).
func (m *MockTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	args := m.Called(model, operation, tableName)
	return args.Get(0).(int64), args.Error(1)
}

// ExecuteUpsert records (model, tableName, conflictColumns, updateColumns).
func (m *MockTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	args := m.Called(model, tableName, conflictColumns, updateColumns)
	return args.Get(0).(int64), args.Error(1)
}
