package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// PostgresPolicyStore implements store.PolicyStore on the
// users.notification_settings JSONB column.
type PostgresPolicyStore struct {
	db       store.DBTX
	logger   *slog.Logger
	defaults domain.NotificationPolicy
}

// NewPostgresPolicyStore creates a new PostgresPolicyStore. defaults is the
// policy of users without stored settings.
func NewPostgresPolicyStore(db store.DBTX, logger *slog.Logger, defaults domain.NotificationPolicy) *PostgresPolicyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.Validate() != nil {
		defaults = domain.DefaultNotificationPolicy()
	}

	return &PostgresPolicyStore{
		db:       db,
		logger:   logger.With(slog.String("component", "policy_store")),
		defaults: defaults,
	}
}

var _ store.PolicyStore = (*PostgresPolicyStore)(nil)

// GetNotificationPolicy implements store.PolicyStore.GetNotificationPolicy.
func (s *PostgresPolicyStore) GetNotificationPolicy(
	ctx context.Context,
	userID uuid.UUID,
) (domain.NotificationPolicy, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var raw []byte
	query := `SELECT notification_settings FROM users WHERE id = $1`
	if err := s.db.GetContext(ctx, &raw, query, userID); err != nil {
		err = mapNotFound(err, store.ErrUserNotFound)
		log.Warn("failed to load notification policy",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return domain.NotificationPolicy{}, err
	}

	return domain.DecodeNotificationPolicy(raw, s.defaults), nil
}

// UpdateNotificationPolicy implements store.PolicyStore.UpdateNotificationPolicy.
func (s *PostgresPolicyStore) UpdateNotificationPolicy(
	ctx context.Context,
	userID uuid.UUID,
	policy domain.NotificationPolicy,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	doc, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode notification policy: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET notification_settings = $2 WHERE id = $1`,
		userID, doc)
	if err != nil {
		log.Error("failed to update notification policy",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// MaxLeadTime implements store.PolicyStore.MaxLeadTime.
// Users without stored settings, or with an unusable lead time or enabled
// flag, count with the defaults, mirroring how GetNotificationPolicy decodes
// them. A malformed document never fails the query.
func (s *PostgresPolicyStore) MaxLeadTime(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		WITH settings AS (
			SELECT
				CASE
					WHEN jsonb_typeof(notification_settings->'taskEnabled') = 'boolean'
					THEN (notification_settings->>'taskEnabled')::boolean
					ELSE $3
				END AS task_enabled,
				CASE
					WHEN jsonb_typeof(notification_settings->'leadTimeMinutes') = 'number'
					THEN CASE
						WHEN (notification_settings->>'leadTimeMinutes')::numeric >= 1
						THEN (notification_settings->>'leadTimeMinutes')::numeric::int
						ELSE $1
					END
					ELSE $1
				END AS lead_time
			FROM users
		)
		SELECT COALESCE(MAX(lead_time), $2)
		FROM settings
		WHERE task_enabled
	`

	var minutes int
	if err := s.db.GetContext(ctx, &minutes, query,
		s.defaults.LeadTimeMinutes, domain.FallbackLookaheadMinutes, s.defaults.TaskEnabled); err != nil {
		log.Error("failed to compute max lead time", slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	return minutes, nil
}
