package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation matched no row in
	// the expected state.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	ErrTaskNotFound         = fmt.Errorf("%w: task", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)
	ErrAchievementNotFound  = fmt.Errorf("%w: achievement", ErrNotFound)
	ErrInvitationNotFound   = fmt.Errorf("%w: invitation", ErrNotFound)
	ErrAccessGrantNotFound  = fmt.Errorf("%w: access grant", ErrNotFound)

	// ErrAchievementKeyExists indicates an achievement with the same key is already defined.
	ErrAchievementKeyExists = fmt.Errorf("%w: achievement key", ErrDuplicate)

	// ErrInvitationExists indicates the recipient already has a pending
	// invitation to the task.
	ErrInvitationExists = fmt.Errorf("%w: pending invitation", ErrDuplicate)

	// ErrAccessGrantExists indicates the user already has access to the task.
	ErrAccessGrantExists = fmt.Errorf("%w: access grant", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// Entity-specific errors wrap ErrNotFound, so a single errors.Is suffices.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
