package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

const progressQuery = `
	SELECT ua.id, ua.user_id, ua.achievement_id, a.key, a.name, a.description, a.target,
	       ua.progress, ua.completed, ua.completed_at
	FROM user_achievements ua
	JOIN achievements a ON a.id = ua.achievement_id
	WHERE ua.user_id = $1
	ORDER BY a.name
`

// PostgresAchievementStore implements store.AchievementStore.
type PostgresAchievementStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAchievementStore creates a new PostgresAchievementStore.
func NewPostgresAchievementStore(db store.DBTX, logger *slog.Logger) *PostgresAchievementStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAchievementStore{
		db:     db,
		logger: logger.With(slog.String("component", "achievement_store")),
	}
}

var _ store.AchievementStore = (*PostgresAchievementStore)(nil)

// WithTx implements store.AchievementStore.WithTx.
func (s *PostgresAchievementStore) WithTx(tx *sqlx.Tx) store.AchievementStore {
	return &PostgresAchievementStore{db: tx, logger: s.logger}
}

// CreateAchievement implements store.AchievementStore.CreateAchievement.
func (s *PostgresAchievementStore) CreateAchievement(ctx context.Context, a *domain.Achievement) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := a.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO achievements (id, key, name, description, target, created_at)
		VALUES (:id, :key, :name, :description, :target, :created_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.db, query, a); err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, store.ErrAchievementKeyExists)
		}
		log.Error("failed to create achievement",
			slog.String("error", err.Error()),
			slog.String("key", string(a.Key)))
		return MapError(err)
	}

	log.Info("achievement created",
		slog.String("achievement_id", a.ID.String()),
		slog.String("key", string(a.Key)))
	return nil
}

// SeedProgress implements store.AchievementStore.SeedProgress.
func (s *PostgresAchievementStore) SeedProgress(ctx context.Context, achievementID uuid.UUID) (int64, error) {
	query := `
		INSERT INTO user_achievements (id, user_id, achievement_id)
		SELECT gen_random_uuid(), u.id, $1
		FROM users u
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, achievementID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to seed achievement progress",
			slog.String("error", err.Error()),
			slog.String("achievement_id", achievementID.String()))
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// ListProgress implements store.AchievementStore.ListProgress.
func (s *PostgresAchievementStore) ListProgress(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.UserAchievementProgress, error) {
	return s.list(ctx, userID, progressQuery)
}

// ListProgressForUpdate implements store.AchievementStore.ListProgressForUpdate.
func (s *PostgresAchievementStore) ListProgressForUpdate(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.UserAchievementProgress, error) {
	return s.list(ctx, userID, progressQuery+" FOR UPDATE OF ua")
}

func (s *PostgresAchievementStore) list(
	ctx context.Context,
	userID uuid.UUID,
	query string,
) ([]*domain.UserAchievementProgress, error) {
	progress := []*domain.UserAchievementProgress{}
	if err := s.db.SelectContext(ctx, &progress, query, userID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list achievement progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	return progress, nil
}

// UpdateProgress implements store.AchievementStore.UpdateProgress.
func (s *PostgresAchievementStore) UpdateProgress(ctx context.Context, p *domain.UserAchievementProgress) error {
	query := `
		UPDATE user_achievements
		SET progress = $2, completed = $3, completed_at = $4
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, p.ID, p.Progress, p.Completed, p.CompletedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update achievement progress",
			slog.String("error", err.Error()),
			slog.String("progress_id", p.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAchievementNotFound)
}
