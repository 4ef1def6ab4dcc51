package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
)

// MockNotificationStore implements store.NotificationStore for testing.
// Created notifications are kept in memory.
type MockNotificationStore struct {
	CreateFn       func(ctx context.Context, notification *domain.Notification) error
	ListForUserFn  func(ctx context.Context, userID uuid.UUID, onlyOpen bool) ([]*domain.Notification, error)
	CloseFn        func(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkReadFn     func(ctx context.Context, userID, notificationID uuid.UUID) error
	DeleteClosedFn func(ctx context.Context) (int64, error)

	mu      sync.Mutex
	Created []*domain.Notification
}

// Create implements store.NotificationStore
func (m *MockNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, notification); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.Created = append(m.Created, notification)
	m.mu.Unlock()
	return nil
}

// ListForUser implements store.NotificationStore
func (m *MockNotificationStore) ListForUser(ctx context.Context, userID uuid.UUID, onlyOpen bool) ([]*domain.Notification, error) {
	if m.ListForUserFn != nil {
		return m.ListForUserFn(ctx, userID, onlyOpen)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range m.Created {
		if n.UserID == userID && (!onlyOpen || !n.IsClosed) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Close implements store.NotificationStore
func (m *MockNotificationStore) Close(ctx context.Context, userID, notificationID uuid.UUID) error {
	if m.CloseFn != nil {
		return m.CloseFn(ctx, userID, notificationID)
	}
	return m.setFlag(userID, notificationID, func(n *domain.Notification) { n.IsClosed = true })
}

// MarkRead implements store.NotificationStore
func (m *MockNotificationStore) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, userID, notificationID)
	}
	return m.setFlag(userID, notificationID, func(n *domain.Notification) { n.IsRead = true })
}

// DeleteClosed implements store.NotificationStore
func (m *MockNotificationStore) DeleteClosed(ctx context.Context) (int64, error) {
	if m.DeleteClosedFn != nil {
		return m.DeleteClosedFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Created[:0]
	var deleted int64
	for _, n := range m.Created {
		if n.IsClosed {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.Created = kept
	return deleted, nil
}

func (m *MockNotificationStore) setFlag(userID, id uuid.UUID, set func(*domain.Notification)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.Created {
		if n.ID == id && n.UserID == userID {
			set(n)
			return nil
		}
	}
	return store.ErrNotificationNotFound
}

// For returns the notifications created for userID
func (m *MockNotificationStore) For(userID uuid.UUID) []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range m.Created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// Count returns how many notifications were created
func (m *MockNotificationStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

var _ store.NotificationStore = (*MockNotificationStore)(nil)
