package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
)

// MockPolicyStore implements store.PolicyStore for testing.
// Without custom functions it serves Policies, falling back to the default
// policy for users it does not know.
type MockPolicyStore struct {
	GetNotificationPolicyFn    func(ctx context.Context, userID uuid.UUID) (domain.NotificationPolicy, error)
	UpdateNotificationPolicyFn func(ctx context.Context, userID uuid.UUID, policy domain.NotificationPolicy) error
	MaxLeadTimeFn              func(ctx context.Context) (int, error)

	mu       sync.Mutex
	Policies map[uuid.UUID]domain.NotificationPolicy
}

// NewMockPolicyStore creates a MockPolicyStore serving the given policies
func NewMockPolicyStore(policies map[uuid.UUID]domain.NotificationPolicy) *MockPolicyStore {
	if policies == nil {
		policies = make(map[uuid.UUID]domain.NotificationPolicy)
	}
	return &MockPolicyStore{Policies: policies}
}

// GetNotificationPolicy implements store.PolicyStore
func (m *MockPolicyStore) GetNotificationPolicy(ctx context.Context, userID uuid.UUID) (domain.NotificationPolicy, error) {
	if m.GetNotificationPolicyFn != nil {
		return m.GetNotificationPolicyFn(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Policies[userID]; ok {
		return p, nil
	}
	return domain.DefaultNotificationPolicy(), nil
}

// UpdateNotificationPolicy implements store.PolicyStore
func (m *MockPolicyStore) UpdateNotificationPolicy(ctx context.Context, userID uuid.UUID, policy domain.NotificationPolicy) error {
	if m.UpdateNotificationPolicyFn != nil {
		return m.UpdateNotificationPolicyFn(ctx, userID, policy)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Policies == nil {
		m.Policies = make(map[uuid.UUID]domain.NotificationPolicy)
	}
	m.Policies[userID] = policy
	return nil
}

// MaxLeadTime implements store.PolicyStore. Without a custom function it
// computes the maximum over Policies the way the SQL store does.
func (m *MockPolicyStore) MaxLeadTime(ctx context.Context) (int, error) {
	if m.MaxLeadTimeFn != nil {
		return m.MaxLeadTimeFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, p := range m.Policies {
		if p.TaskEnabled && p.LeadTimeMinutes > max {
			max = p.LeadTimeMinutes
		}
	}
	if max == 0 {
		return domain.FallbackLookaheadMinutes, nil
	}
	return max, nil
}

var _ store.PolicyStore = (*MockPolicyStore)(nil)
