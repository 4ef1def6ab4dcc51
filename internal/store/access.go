package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// AccessStore persists task invitations and the access grants they create.
// Version: 1.0
type AccessStore interface {
	// CreateInvitation saves a new pending invitation.
	// Returns ErrInvitationExists if the recipient already has a pending
	// invitation to the task.
	CreateInvitation(ctx context.Context, invitation *domain.Invitation) error

	// GetInvitationForUpdate retrieves an invitation with sender and
	// recipient usernames and locks its row until the surrounding
	// transaction ends.
	// Returns ErrInvitationNotFound if the invitation does not exist.
	GetInvitationForUpdate(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)

	// UpdateInvitation saves status and responded_at.
	// Returns ErrInvitationNotFound if the invitation does not exist.
	UpdateInvitation(ctx context.Context, invitation *domain.Invitation) error

	// GetGrant retrieves one user's grant on a task.
	// Returns ErrAccessGrantNotFound if the user holds no grant.
	GetGrant(ctx context.Context, taskID, userID uuid.UUID) (*domain.AccessGrant, error)

	// UpsertGrant creates the grant or overwrites the level of an existing one.
	UpsertGrant(ctx context.Context, grant domain.AccessGrant) error

	// UpdateGrantLevel changes the level of an existing grant.
	// Returns ErrAccessGrantNotFound if the user holds no grant.
	UpdateGrantLevel(ctx context.Context, taskID, userID uuid.UUID, level domain.AccessLevel) error

	// DeleteGrant removes a grant.
	// Returns ErrAccessGrantNotFound if the user holds no grant.
	DeleteGrant(ctx context.Context, taskID, userID uuid.UUID) error

	// GetUsername resolves a user ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetUsername(ctx context.Context, userID uuid.UUID) (string, error)

	// WithTx returns an AccessStore that uses the provided transaction.
	WithTx(tx *sqlx.Tx) AccessStore
}
