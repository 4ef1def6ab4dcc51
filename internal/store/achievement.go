package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// AchievementStore persists achievement definitions and per-user progress.
// Version: 1.0
type AchievementStore interface {
	// CreateAchievement saves a new definition.
	// Returns ErrAchievementKeyExists if the key is taken.
	CreateAchievement(ctx context.Context, achievement *domain.Achievement) error

	// SeedProgress creates a zero progress row for every existing user that
	// has none for the achievement and returns how many rows were created.
	SeedProgress(ctx context.Context, achievementID uuid.UUID) (int64, error)

	// ListProgress returns all of the user's progress rows joined with their
	// definitions, ordered by achievement name.
	ListProgress(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error)

	// ListProgressForUpdate is ListProgress with the rows locked until the
	// surrounding transaction ends. Only meaningful on a store returned by WithTx.
	ListProgressForUpdate(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error)

	// UpdateProgress saves progress, completed and completed_at of one row.
	// Returns ErrAchievementNotFound if the row does not exist.
	UpdateProgress(ctx context.Context, progress *domain.UserAchievementProgress) error

	// WithTx returns an AchievementStore that uses the provided transaction.
	WithTx(tx *sqlx.Tx) AchievementStore
}
