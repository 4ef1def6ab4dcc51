package mocks

import (
	"context"
	"sync/atomic"

	"github.com/phrazzld/tasknotify/internal/store"
)

// MockTransactor implements store.Transactor by running the function inline
// with a nil transaction. Pair it with store mocks whose WithTx returns
// themselves.
type MockTransactor struct {
	// RunInTransactionFn overrides the default inline behaviour
	RunInTransactionFn func(ctx context.Context, fn store.TxFn) error

	calls atomic.Int32
}

// RunInTransaction implements store.Transactor
func (m *MockTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	m.calls.Add(1)
	if m.RunInTransactionFn != nil {
		return m.RunInTransactionFn(ctx, fn)
	}
	return fn(ctx, nil)
}

// Calls returns how many transactions were started
func (m *MockTransactor) Calls() int {
	return int(m.calls.Load())
}

var _ store.Transactor = (*MockTransactor)(nil)
