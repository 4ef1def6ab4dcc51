package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
)

// MockTaskStore implements store.TaskStore for testing
type MockTaskStore struct {
	FindNotNotifiedUpcomingFn func(ctx context.Context, start, end time.Time) ([]*domain.Task, error)
	FindAccessGrantsFn        func(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error)
	SetNotifiedFn             func(ctx context.Context, taskID uuid.UUID, dueDate time.Time) error
	CreateFn                  func(ctx context.Context, task *domain.Task) error
	GetByIDFn                 func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	GetForUpdateFn            func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateFn                  func(ctx context.Context, task *domain.Task) error

	// Call tracking for verification
	mu               sync.Mutex
	SetNotifiedCalls []uuid.UUID
	ScanWindows      [][2]time.Time
	Updated          []*domain.Task
	Created          []*domain.Task
}

// FindNotNotifiedUpcoming implements store.TaskQuery
func (m *MockTaskStore) FindNotNotifiedUpcoming(ctx context.Context, start, end time.Time) ([]*domain.Task, error) {
	m.mu.Lock()
	m.ScanWindows = append(m.ScanWindows, [2]time.Time{start, end})
	m.mu.Unlock()

	if m.FindNotNotifiedUpcomingFn != nil {
		return m.FindNotNotifiedUpcomingFn(ctx, start, end)
	}
	return nil, nil
}

// FindAccessGrants implements store.TaskQuery
func (m *MockTaskStore) FindAccessGrants(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error) {
	if m.FindAccessGrantsFn != nil {
		return m.FindAccessGrantsFn(ctx, taskID)
	}
	return nil, nil
}

// SetNotified implements store.TaskQuery
func (m *MockTaskStore) SetNotified(ctx context.Context, taskID uuid.UUID, dueDate time.Time) error {
	m.mu.Lock()
	m.SetNotifiedCalls = append(m.SetNotifiedCalls, taskID)
	m.mu.Unlock()

	if m.SetNotifiedFn != nil {
		return m.SetNotifiedFn(ctx, taskID, dueDate)
	}
	return nil
}

// Create implements store.TaskStore
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	m.Created = append(m.Created, task)
	m.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	return nil
}

// GetByID implements store.TaskStore
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, store.ErrTaskNotFound
}

// GetForUpdate implements store.TaskStore
func (m *MockTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(ctx, id)
	}
	return m.GetByID(ctx, id)
}

// Update implements store.TaskStore
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	m.Updated = append(m.Updated, task)
	m.mu.Unlock()

	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	return nil
}

// WithTx returns the mock itself; transactions are not simulated
func (m *MockTaskStore) WithTx(tx *sqlx.Tx) store.TaskStore {
	return m
}

// SetNotifiedCount returns how many times SetNotified was called
func (m *MockTaskStore) SetNotifiedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SetNotifiedCalls)
}

var _ store.TaskStore = (*MockTaskStore)(nil)
