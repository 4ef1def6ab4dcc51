package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// DefineAchievementInput carries a new achievement definition.
type DefineAchievementInput struct {
	Key         domain.AchievementKey
	Name        string
	Description string
	Target      int
}

// AchievementService manages achievement definitions and exposes progress.
type AchievementService interface {
	// Define stores a new achievement and seeds a zero progress row for
	// every existing user in the same transaction. Returns the number of
	// seeded rows.
	Define(ctx context.Context, input DefineAchievementInput) (*domain.Achievement, int64, error)

	// ListProgress returns the user's progress on every achievement.
	ListProgress(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error)
}

type achievementServiceImpl struct {
	transactor   store.Transactor
	achievements store.AchievementStore
	logger       *slog.Logger
}

var _ AchievementService = (*achievementServiceImpl)(nil)

// NewAchievementService creates a new AchievementService.
func NewAchievementService(
	transactor store.Transactor,
	achievements store.AchievementStore,
	logger *slog.Logger,
) (AchievementService, error) {
	if transactor == nil {
		return nil, domain.NewValidationError("transactor", "cannot be nil", domain.ErrValidation)
	}
	if achievements == nil {
		return nil, domain.NewValidationError("achievements", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &achievementServiceImpl{
		transactor:   transactor,
		achievements: achievements,
		logger:       logger.With(slog.String("component", "achievement_service")),
	}, nil
}

// Define implements AchievementService.Define
func (s *achievementServiceImpl) Define(
	ctx context.Context,
	input DefineAchievementInput,
) (*domain.Achievement, int64, error) {
	const op = "define_achievement"
	log := logger.FromContextOrDefault(ctx, s.logger)

	achievement, err := domain.NewAchievement(input.Key, input.Name, input.Description, input.Target)
	if err != nil {
		return nil, 0, NewServiceError(op, "invalid achievement", err)
	}

	var seeded int64
	err = s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		achievements := s.achievements.WithTx(tx)

		if err := achievements.CreateAchievement(ctx, achievement); err != nil {
			return NewServiceError(op, "failed to save achievement", err)
		}

		n, err := achievements.SeedProgress(ctx, achievement.ID)
		if err != nil {
			return NewServiceError(op, "failed to seed progress", err)
		}
		seeded = n
		return nil
	})
	if err != nil {
		log.Error("failed to define achievement",
			slog.String("key", string(input.Key)),
			slog.String("error", err.Error()))
		return nil, 0, err
	}

	log.Info("achievement defined",
		slog.String("key", string(achievement.Key)),
		slog.Int64("seeded", seeded))
	return achievement, seeded, nil
}

// ListProgress implements AchievementService.ListProgress
func (s *achievementServiceImpl) ListProgress(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.UserAchievementProgress, error) {
	rows, err := s.achievements.ListProgress(ctx, userID)
	if err != nil {
		return nil, NewServiceError("list_achievements", "failed to load progress", err)
	}
	return rows, nil
}
