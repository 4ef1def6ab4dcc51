package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
)

// MockAchievementStore implements store.AchievementStore for testing.
// Without custom functions it serves and updates the rows in Progress.
type MockAchievementStore struct {
	CreateAchievementFn     func(ctx context.Context, achievement *domain.Achievement) error
	SeedProgressFn          func(ctx context.Context, achievementID uuid.UUID) (int64, error)
	ListProgressFn          func(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error)
	ListProgressForUpdateFn func(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error)
	UpdateProgressFn        func(ctx context.Context, progress *domain.UserAchievementProgress) error

	mu       sync.Mutex
	Progress map[uuid.UUID][]*domain.UserAchievementProgress
	Created  []*domain.Achievement
	Updates  int
}

// NewMockAchievementStore creates a store holding the given progress rows
func NewMockAchievementStore(rows ...*domain.UserAchievementProgress) *MockAchievementStore {
	m := &MockAchievementStore{Progress: make(map[uuid.UUID][]*domain.UserAchievementProgress)}
	for _, r := range rows {
		m.Progress[r.UserID] = append(m.Progress[r.UserID], r)
	}
	return m
}

// CreateAchievement implements store.AchievementStore
func (m *MockAchievementStore) CreateAchievement(ctx context.Context, achievement *domain.Achievement) error {
	if m.CreateAchievementFn != nil {
		if err := m.CreateAchievementFn(ctx, achievement); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Created = append(m.Created, achievement)
	m.mu.Unlock()
	return nil
}

// SeedProgress implements store.AchievementStore
func (m *MockAchievementStore) SeedProgress(ctx context.Context, achievementID uuid.UUID) (int64, error) {
	if m.SeedProgressFn != nil {
		return m.SeedProgressFn(ctx, achievementID)
	}
	return 0, nil
}

// ListProgress implements store.AchievementStore. Rows are returned as
// copies so callers only change stored state through UpdateProgress.
func (m *MockAchievementStore) ListProgress(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error) {
	if m.ListProgressFn != nil {
		return m.ListProgressFn(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.UserAchievementProgress, 0, len(m.Progress[userID]))
	for _, r := range m.Progress[userID] {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

// ListProgressForUpdate implements store.AchievementStore
func (m *MockAchievementStore) ListProgressForUpdate(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error) {
	if m.ListProgressForUpdateFn != nil {
		return m.ListProgressForUpdateFn(ctx, userID)
	}
	return m.ListProgress(ctx, userID)
}

// UpdateProgress implements store.AchievementStore
func (m *MockAchievementStore) UpdateProgress(ctx context.Context, progress *domain.UserAchievementProgress) error {
	if m.UpdateProgressFn != nil {
		return m.UpdateProgressFn(ctx, progress)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	for i, r := range m.Progress[progress.UserID] {
		if r.ID == progress.ID {
			c := *progress
			m.Progress[progress.UserID][i] = &c
			return nil
		}
	}
	return store.ErrAchievementNotFound
}

// WithTx returns the mock itself; transactions are not simulated
func (m *MockAchievementStore) WithTx(tx *sqlx.Tx) store.AchievementStore {
	return m
}

// Get returns a copy of the stored row for the user and key, or nil
func (m *MockAchievementStore) Get(userID uuid.UUID, key domain.AchievementKey) *domain.UserAchievementProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Progress[userID] {
		if r.Key == key {
			c := *r
			return &c
		}
	}
	return nil
}

var _ store.AchievementStore = (*MockAchievementStore)(nil)
