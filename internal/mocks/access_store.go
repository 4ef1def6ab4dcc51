package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
)

type grantKey struct {
	taskID uuid.UUID
	userID uuid.UUID
}

// MockAccessStore implements store.AccessStore for testing.
// Without custom functions it keeps invitations, grants and usernames in
// memory the way the SQL store does.
type MockAccessStore struct {
	CreateInvitationFn func(ctx context.Context, invitation *domain.Invitation) error
	UpsertGrantFn      func(ctx context.Context, grant domain.AccessGrant) error
	DeleteGrantFn      func(ctx context.Context, taskID, userID uuid.UUID) error

	mu          sync.Mutex
	invitations map[uuid.UUID]*domain.Invitation
	grants      map[grantKey]domain.AccessGrant
	usernames   map[uuid.UUID]string
}

// NewMockAccessStore creates an empty store
func NewMockAccessStore() *MockAccessStore {
	return &MockAccessStore{
		invitations: make(map[uuid.UUID]*domain.Invitation),
		grants:      make(map[grantKey]domain.AccessGrant),
		usernames:   make(map[uuid.UUID]string),
	}
}

// AddUser registers a username for GetUsername
func (m *MockAccessStore) AddUser(id uuid.UUID, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernames[id] = username
}

// AddGrant stores a grant directly
func (m *MockAccessStore) AddGrant(grant domain.AccessGrant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey{grant.TaskID, grant.UserID}] = grant
}

// AddInvitation stores an invitation directly
func (m *MockAccessStore) AddInvitation(invitation *domain.Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *invitation
	m.invitations[invitation.ID] = &cp
}

// Invitation returns a copy of the stored invitation, or nil
func (m *MockAccessStore) Invitation(id uuid.UUID) *domain.Invitation {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return nil
	}
	cp := *inv
	return &cp
}

// Grants returns every grant on the task
func (m *MockAccessStore) Grants(taskID uuid.UUID) []domain.AccessGrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AccessGrant
	for k, g := range m.grants {
		if k.taskID == taskID {
			out = append(out, g)
		}
	}
	return out
}

// CreateInvitation implements store.AccessStore
func (m *MockAccessStore) CreateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	if m.CreateInvitationFn != nil {
		if err := m.CreateInvitationFn(ctx, invitation); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.TaskID == invitation.TaskID && inv.RecipientID == invitation.RecipientID &&
			inv.Status == domain.InvitationPending {
			return store.ErrInvitationExists
		}
	}
	cp := *invitation
	m.invitations[invitation.ID] = &cp
	return nil
}

// GetInvitationForUpdate implements store.AccessStore
func (m *MockAccessStore) GetInvitationForUpdate(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	if inv := m.Invitation(id); inv != nil {
		return inv, nil
	}
	return nil, store.ErrInvitationNotFound
}

// UpdateInvitation implements store.AccessStore
func (m *MockAccessStore) UpdateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invitations[invitation.ID]; !ok {
		return store.ErrInvitationNotFound
	}
	cp := *invitation
	m.invitations[invitation.ID] = &cp
	return nil
}

// GetGrant implements store.AccessStore
func (m *MockAccessStore) GetGrant(ctx context.Context, taskID, userID uuid.UUID) (*domain.AccessGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[grantKey{taskID, userID}]
	if !ok {
		return nil, store.ErrAccessGrantNotFound
	}
	return &g, nil
}

// UpsertGrant implements store.AccessStore
func (m *MockAccessStore) UpsertGrant(ctx context.Context, grant domain.AccessGrant) error {
	if m.UpsertGrantFn != nil {
		if err := m.UpsertGrantFn(ctx, grant); err != nil {
			return err
		}
	}
	m.AddGrant(grant)
	return nil
}

// UpdateGrantLevel implements store.AccessStore
func (m *MockAccessStore) UpdateGrantLevel(ctx context.Context, taskID, userID uuid.UUID, level domain.AccessLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := grantKey{taskID, userID}
	g, ok := m.grants[k]
	if !ok {
		return store.ErrAccessGrantNotFound
	}
	g.Level = level
	m.grants[k] = g
	return nil
}

// DeleteGrant implements store.AccessStore
func (m *MockAccessStore) DeleteGrant(ctx context.Context, taskID, userID uuid.UUID) error {
	if m.DeleteGrantFn != nil {
		if err := m.DeleteGrantFn(ctx, taskID, userID); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	k := grantKey{taskID, userID}
	if _, ok := m.grants[k]; !ok {
		return store.ErrAccessGrantNotFound
	}
	delete(m.grants, k)
	return nil
}

// GetUsername implements store.AccessStore
func (m *MockAccessStore) GetUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.usernames[userID]
	if !ok {
		return "", store.ErrUserNotFound
	}
	return name, nil
}

// WithTx returns the mock itself; transactions are not simulated
func (m *MockAccessStore) WithTx(tx *sqlx.Tx) store.AccessStore {
	return m
}

var _ store.AccessStore = (*MockAccessStore)(nil)
