package domain

import (
	"errors"

	"github.com/google/uuid"
)

// AccessLevel is an ordered capability a user holds on a task.
type AccessLevel string

// Access levels in ascending order of capability.
const (
	AccessLevelView  AccessLevel = "view"
	AccessLevelEdit  AccessLevel = "edit"
	AccessLevelOwner AccessLevel = "owner"
)

// Access errors
var (
	// ErrInvalidAccessLevel is returned for an unknown access level.
	ErrInvalidAccessLevel = errors.New("invalid access level")

	// ErrUnassignableAccessLevel is returned when a grant would hand out
	// owner access. Collaborators hold view or edit only.
	ErrUnassignableAccessLevel = errors.New("access level must be view or edit")

	// ErrOwnerAccessImmutable is returned when an invitation or grant
	// change targets the task owner.
	ErrOwnerAccessImmutable = errors.New("task owner access cannot be changed")
)

var accessRank = map[AccessLevel]int{
	AccessLevelView:  1,
	AccessLevelEdit:  2,
	AccessLevelOwner: 3,
}

// Valid reports whether l is a known access level.
func (l AccessLevel) Valid() bool {
	_, ok := accessRank[l]
	return ok
}

// Compare returns -1, 0 or +1 depending on whether l grants less, the same,
// or more capability than other. Unknown levels rank below view.
func (l AccessLevel) Compare(other AccessLevel) int {
	a, b := accessRank[l], accessRank[other]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Assignable reports whether l may be granted to a collaborator.
func (l AccessLevel) Assignable() bool {
	return l == AccessLevelView || l == AccessLevelEdit
}

// AtLeast reports whether l grants at least the capability of required.
func (l AccessLevel) AtLeast(required AccessLevel) bool {
	return l.Compare(required) >= 0
}

// AccessGrant is a sharing relationship between a task and a user other
// than its owner.
type AccessGrant struct {
	TaskID   uuid.UUID   `db:"task_id"  json:"task_id"`
	UserID   uuid.UUID   `db:"user_id"  json:"user_id"`
	Username string      `db:"username" json:"username"`
	Level    AccessLevel `db:"level"    json:"level"`
}

// Recipient is a user eligible to hear about a task, with the access level
// they personally hold on it.
type Recipient struct {
	UserID   uuid.UUID
	Username string
	Level    AccessLevel
	IsOwner  bool
}

// ResolveRecipients returns the owner followed by every grant holder,
// deduplicated by user ID. A grant naming the owner is folded into the
// owner entry, and a user granted twice keeps the higher level.
func ResolveRecipients(task *Task, grants []AccessGrant) []Recipient {
	recipients := make([]Recipient, 0, len(grants)+1)
	index := make(map[uuid.UUID]int, len(grants)+1)

	recipients = append(recipients, Recipient{
		UserID:   task.OwnerID,
		Username: task.OwnerUsername,
		Level:    AccessLevelOwner,
		IsOwner:  true,
	})
	index[task.OwnerID] = 0

	for _, g := range grants {
		if i, seen := index[g.UserID]; seen {
			if g.Level.Compare(recipients[i].Level) > 0 {
				recipients[i].Level = g.Level
			}
			continue
		}
		index[g.UserID] = len(recipients)
		recipients = append(recipients, Recipient{
			UserID:   g.UserID,
			Username: g.Username,
			Level:    g.Level,
		})
	}

	return recipients
}
