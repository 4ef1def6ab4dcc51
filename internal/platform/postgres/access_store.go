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

// PostgresAccessStore implements the store.AccessStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAccessStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAccessStore creates a new PostgreSQL implementation of the AccessStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresAccessStore(db store.DBTX, logger *slog.Logger) *PostgresAccessStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAccessStore{
		db:     db,
		logger: logger.With(slog.String("component", "access_store")),
	}
}

var _ store.AccessStore = (*PostgresAccessStore)(nil)

// WithTx implements store.AccessStore.WithTx.
func (s *PostgresAccessStore) WithTx(tx *sqlx.Tx) store.AccessStore {
	return &PostgresAccessStore{db: tx, logger: s.logger}
}

// CreateInvitation implements store.AccessStore.CreateInvitation.
func (s *PostgresAccessStore) CreateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := invitation.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO invitations (id, task_id, sender_id, recipient_id, level, status, created_at)
		VALUES (:id, :task_id, :sender_id, :recipient_id, :level, :status, :created_at)
	`

	if _, err := sqlx.NamedExecContext(ctx, s.db, query, invitation); err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, store.ErrInvitationExists)
		}
		log.Error("failed to create invitation",
			slog.String("error", err.Error()),
			slog.String("task_id", invitation.TaskID.String()),
			slog.String("recipient_id", invitation.RecipientID.String()))
		return MapError(err)
	}

	log.Info("invitation created",
		slog.String("invitation_id", invitation.ID.String()),
		slog.String("task_id", invitation.TaskID.String()))
	return nil
}

// GetInvitationForUpdate implements store.AccessStore.GetInvitationForUpdate.
func (s *PostgresAccessStore) GetInvitationForUpdate(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT i.id, i.task_id, i.sender_id, su.username AS sender_username,
		       i.recipient_id, ru.username AS recipient_username,
		       i.level, i.status, i.created_at, i.responded_at
		FROM invitations i
		JOIN users su ON su.id = i.sender_id
		JOIN users ru ON ru.id = i.recipient_id
		WHERE i.id = $1
		FOR UPDATE OF i
	`

	var inv domain.Invitation
	if err := s.db.GetContext(ctx, &inv, query, id); err != nil {
		err = mapNotFound(err, store.ErrInvitationNotFound)
		if !store.IsNotFoundError(err) {
			log.Error("failed to get invitation",
				slog.String("error", err.Error()),
				slog.String("invitation_id", id.String()))
		}
		return nil, err
	}
	return &inv, nil
}

// UpdateInvitation implements store.AccessStore.UpdateInvitation.
func (s *PostgresAccessStore) UpdateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE invitations
		SET status = $2, responded_at = $3
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, invitation.ID, invitation.Status, invitation.RespondedAt)
	if err != nil {
		log.Error("failed to update invitation",
			slog.String("error", err.Error()),
			slog.String("invitation_id", invitation.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrInvitationNotFound)
}

// GetGrant implements store.AccessStore.GetGrant.
func (s *PostgresAccessStore) GetGrant(ctx context.Context, taskID, userID uuid.UUID) (*domain.AccessGrant, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT a.task_id, a.user_id, u.username, a.level
		FROM task_access a
		JOIN users u ON u.id = a.user_id
		WHERE a.task_id = $1 AND a.user_id = $2
	`

	var grant domain.AccessGrant
	if err := s.db.GetContext(ctx, &grant, query, taskID, userID); err != nil {
		err = mapNotFound(err, store.ErrAccessGrantNotFound)
		if !store.IsNotFoundError(err) {
			log.Error("failed to get access grant",
				slog.String("error", err.Error()),
				slog.String("task_id", taskID.String()),
				slog.String("user_id", userID.String()))
		}
		return nil, err
	}
	return &grant, nil
}

// UpsertGrant implements store.AccessStore.UpsertGrant.
func (s *PostgresAccessStore) UpsertGrant(ctx context.Context, grant domain.AccessGrant) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO task_access (task_id, user_id, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (task_id, user_id) DO UPDATE SET level = EXCLUDED.level
	`

	if _, err := s.db.ExecContext(ctx, query, grant.TaskID, grant.UserID, grant.Level); err != nil {
		log.Error("failed to upsert access grant",
			slog.String("error", err.Error()),
			slog.String("task_id", grant.TaskID.String()),
			slog.String("user_id", grant.UserID.String()))
		return MapError(err)
	}

	log.Info("access granted",
		slog.String("task_id", grant.TaskID.String()),
		slog.String("user_id", grant.UserID.String()),
		slog.String("level", string(grant.Level)))
	return nil
}

// UpdateGrantLevel implements store.AccessStore.UpdateGrantLevel.
func (s *PostgresAccessStore) UpdateGrantLevel(
	ctx context.Context,
	taskID, userID uuid.UUID,
	level domain.AccessLevel,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE task_access
		SET level = $3
		WHERE task_id = $1 AND user_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, taskID, userID, level)
	if err != nil {
		log.Error("failed to update access grant",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAccessGrantNotFound)
}

// DeleteGrant implements store.AccessStore.DeleteGrant.
func (s *PostgresAccessStore) DeleteGrant(ctx context.Context, taskID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM task_access WHERE task_id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		log.Error("failed to delete access grant",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAccessGrantNotFound)
}

// GetUsername implements store.AccessStore.GetUsername.
func (s *PostgresAccessStore) GetUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	var username string
	err := s.db.GetContext(ctx, &username, `SELECT username FROM users WHERE id = $1`, userID)
	if err != nil {
		return "", mapNotFound(err, store.ErrUserNotFound)
	}
	return username, nil
}
