package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the state of a task invitation.
type InvitationStatus string

// Possible invitation status values
const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation errors
var (
	ErrEmptyInvitationTask   = errors.New("invitation task ID cannot be empty")
	ErrEmptyInvitationSender = errors.New("invitation sender cannot be empty")
	ErrEmptyInvitee          = errors.New("invitation recipient cannot be empty")
	ErrInvalidInvitation     = errors.New("invalid invitation status")
	ErrInvitationNotPending  = errors.New("invitation was already answered")
)

// Invitation offers a user access to a task. Accepting it creates the
// corresponding access grant.
type Invitation struct {
	ID                uuid.UUID        `db:"id"                 json:"id"`
	TaskID            uuid.UUID        `db:"task_id"            json:"task_id"`
	SenderID          uuid.UUID        `db:"sender_id"          json:"sender_id"`
	SenderUsername    string           `db:"sender_username"    json:"sender_username"`
	RecipientID       uuid.UUID        `db:"recipient_id"       json:"recipient_id"`
	RecipientUsername string           `db:"recipient_username" json:"recipient_username"`
	Level             AccessLevel      `db:"level"              json:"level"`
	Status            InvitationStatus `db:"status"             json:"status"`
	CreatedAt         time.Time        `db:"created_at"         json:"created_at"`
	RespondedAt       *time.Time       `db:"responded_at"       json:"responded_at,omitempty"`
}

// NewInvitation creates a pending invitation from sender to recipient.
func NewInvitation(
	taskID, senderID uuid.UUID,
	senderUsername string,
	recipientID uuid.UUID,
	recipientUsername string,
	level AccessLevel,
) (*Invitation, error) {
	inv := &Invitation{
		ID:                uuid.New(),
		TaskID:            taskID,
		SenderID:          senderID,
		SenderUsername:    senderUsername,
		RecipientID:       recipientID,
		RecipientUsername: recipientUsername,
		Level:             level,
		Status:            InvitationPending,
		CreatedAt:         time.Now().UTC(),
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Validate checks if the Invitation has valid data.
func (i *Invitation) Validate() error {
	if i.TaskID == uuid.Nil {
		return ErrEmptyInvitationTask
	}
	if i.SenderID == uuid.Nil {
		return ErrEmptyInvitationSender
	}
	if i.RecipientID == uuid.Nil {
		return ErrEmptyInvitee
	}
	if i.RecipientID == i.SenderID {
		return ErrOwnerAccessImmutable
	}
	if !i.Level.Valid() {
		return ErrInvalidAccessLevel
	}
	if !i.Level.Assignable() {
		return ErrUnassignableAccessLevel
	}
	switch i.Status {
	case InvitationPending, InvitationAccepted, InvitationDeclined:
		return nil
	default:
		return ErrInvalidInvitation
	}
}

// Respond accepts or declines a pending invitation.
func (i *Invitation) Respond(accept bool, now time.Time) error {
	if i.Status != InvitationPending {
		return ErrInvitationNotPending
	}
	i.Status = InvitationDeclined
	if accept {
		i.Status = InvitationAccepted
	}
	at := now.UTC()
	i.RespondedAt = &at
	return nil
}

// Grant returns the access grant an accepted invitation confers.
func (i *Invitation) Grant() AccessGrant {
	return AccessGrant{
		TaskID:   i.TaskID,
		UserID:   i.RecipientID,
		Username: i.RecipientUsername,
		Level:    i.Level,
	}
}
