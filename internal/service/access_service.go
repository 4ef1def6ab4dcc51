package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// AccessService manages who else may see or edit a task. Every change
// publishes the event that notifies the affected user.
type AccessService interface {
	// Invite offers recipientID access to the task at level. Only a user
	// with owner access may invite.
	Invite(ctx context.Context, actor Actor, taskID, recipientID uuid.UUID, level domain.AccessLevel) (*domain.Invitation, error)

	// Respond accepts or declines an invitation addressed to the actor.
	// Accepting grants the invited level, replacing any earlier grant.
	Respond(ctx context.Context, actor Actor, invitationID uuid.UUID, accept bool) (*domain.Invitation, error)

	// ListGrants returns the collaborators of a task the actor can view.
	ListGrants(ctx context.Context, actor Actor, taskID uuid.UUID) ([]domain.AccessGrant, error)

	// ChangeLevel sets a collaborator's access level. Setting the level the
	// collaborator already holds changes nothing and raises no event.
	ChangeLevel(ctx context.Context, actor Actor, taskID, userID uuid.UUID, level domain.AccessLevel) (*domain.AccessGrant, error)

	// Remove revokes a collaborator's access.
	Remove(ctx context.Context, actor Actor, taskID, userID uuid.UUID) error
}

// accessServiceImpl implements the AccessService interface
type accessServiceImpl struct {
	transactor store.Transactor
	tasks      store.TaskStore
	access     store.AccessStore
	publisher  events.Publisher
	now        func() time.Time
	logger     *slog.Logger
}

var _ AccessService = (*accessServiceImpl)(nil)

// NewAccessService creates a new AccessService.
// It returns an error if any of the required dependencies are nil.
func NewAccessService(
	transactor store.Transactor,
	tasks store.TaskStore,
	access store.AccessStore,
	publisher events.Publisher,
	logger *slog.Logger,
) (AccessService, error) {
	if transactor == nil {
		return nil, domain.NewValidationError("transactor", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if access == nil {
		return nil, domain.NewValidationError("access", "cannot be nil", domain.ErrValidation)
	}
	if publisher == nil {
		return nil, domain.NewValidationError("publisher", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &accessServiceImpl{
		transactor: transactor,
		tasks:      tasks,
		access:     access,
		publisher:  publisher,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "access_service")),
	}, nil
}

// Invite implements AccessService.Invite
func (s *accessServiceImpl) Invite(
	ctx context.Context,
	actor Actor,
	taskID, recipientID uuid.UUID,
	level domain.AccessLevel,
) (*domain.Invitation, error) {
	const op = "invite"
	log := s.operationLogger(ctx, op, actor, taskID)

	outbox := events.NewOutbox(s.publisher, s.logger)
	var created *domain.Invitation

	err := s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		tasks, access := s.tasks.WithTx(tx), s.access.WithTx(tx)

		task, err := s.ownedTask(ctx, op, tasks, actor, taskID)
		if err != nil {
			return err
		}
		if recipientID == task.OwnerID {
			return NewServiceError(op, "cannot invite the task owner", domain.ErrOwnerAccessImmutable)
		}

		if _, err := access.GetGrant(ctx, taskID, recipientID); err == nil {
			return NewServiceError(op, "user already has access", store.ErrAccessGrantExists)
		} else if !store.IsNotFoundError(err) {
			return NewServiceError(op, "failed to load access grant", err)
		}

		recipientName, err := access.GetUsername(ctx, recipientID)
		if err != nil {
			return NewServiceError(op, "failed to resolve recipient", err)
		}

		inv, err := domain.NewInvitation(taskID, actor.UserID, actor.Username, recipientID, recipientName, level)
		if err != nil {
			return NewServiceError(op, "invalid invitation", err)
		}
		if err := access.CreateInvitation(ctx, inv); err != nil {
			return NewServiceError(op, "failed to save invitation", err)
		}

		event, err := events.NewEvent(events.InvitationCreated, events.InvitationPayload{
			InvitationID:      inv.ID,
			TaskID:            task.ID,
			TaskTitle:         task.Title,
			RecipientID:       recipientID,
			RecipientUsername: recipientName,
			ActorUsername:     actor.Username,
			AccessLevel:       level,
		})
		if err != nil {
			return NewServiceError(op, "failed to build invitation event", err)
		}
		outbox.Add(event)

		created = inv
		return nil
	})
	if err != nil {
		outbox.Discard()
		return nil, err
	}

	s.flush(ctx, log, outbox)
	log.Info("invitation sent",
		slog.String("invitation_id", created.ID.String()),
		slog.String("recipient_id", recipientID.String()))
	return created, nil
}

// Respond implements AccessService.Respond
func (s *accessServiceImpl) Respond(
	ctx context.Context,
	actor Actor,
	invitationID uuid.UUID,
	accept bool,
) (*domain.Invitation, error) {
	const op = "respond_invitation"
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("operation", op),
		slog.String("invitation_id", invitationID.String()),
		slog.String("user_id", actor.UserID.String()),
	)

	outbox := events.NewOutbox(s.publisher, s.logger)
	var result *domain.Invitation

	err := s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		tasks, access := s.tasks.WithTx(tx), s.access.WithTx(tx)

		inv, err := access.GetInvitationForUpdate(ctx, invitationID)
		if err != nil {
			return NewServiceError(op, "failed to load invitation", err)
		}
		// Invitations addressed to someone else are not revealed.
		if inv.RecipientID != actor.UserID {
			return NewServiceError(op, "invitation not found", store.ErrInvitationNotFound)
		}

		if err := inv.Respond(accept, s.now()); err != nil {
			return NewServiceError(op, "invitation cannot be answered", err)
		}
		if err := access.UpdateInvitation(ctx, inv); err != nil {
			return NewServiceError(op, "failed to save invitation", err)
		}

		task, err := tasks.GetByID(ctx, inv.TaskID)
		if err != nil {
			return NewServiceError(op, "failed to load task", err)
		}
		if accept {
			if err := access.UpsertGrant(ctx, inv.Grant()); err != nil {
				return NewServiceError(op, "failed to grant access", err)
			}
		}

		event, err := events.NewEvent(events.InvitationResponded, events.InvitationPayload{
			InvitationID:      inv.ID,
			TaskID:            task.ID,
			TaskTitle:         task.Title,
			RecipientID:       inv.SenderID,
			RecipientUsername: inv.SenderUsername,
			ActorUsername:     actor.Username,
			AccessLevel:       inv.Level,
			Accepted:          accept,
		})
		if err != nil {
			return NewServiceError(op, "failed to build response event", err)
		}
		outbox.Add(event)

		result = inv
		return nil
	})
	if err != nil {
		outbox.Discard()
		return nil, err
	}

	s.flush(ctx, log, outbox)
	log.Info("invitation answered", slog.String("status", string(result.Status)))
	return result, nil
}

// ListGrants implements AccessService.ListGrants
func (s *accessServiceImpl) ListGrants(ctx context.Context, actor Actor, taskID uuid.UUID) ([]domain.AccessGrant, error) {
	const op = "list_grants"

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewServiceError(op, "failed to load task", err)
	}
	if err := authorize(ctx, s.tasks, task, actor.UserID, domain.AccessLevelView); err != nil {
		return nil, NewServiceError(op, "task not accessible", err)
	}

	grants, err := s.tasks.FindAccessGrants(ctx, taskID)
	if err != nil {
		return nil, NewServiceError(op, "failed to load access grants", err)
	}
	return grants, nil
}

// ChangeLevel implements AccessService.ChangeLevel
func (s *accessServiceImpl) ChangeLevel(
	ctx context.Context,
	actor Actor,
	taskID, userID uuid.UUID,
	level domain.AccessLevel,
) (*domain.AccessGrant, error) {
	const op = "change_access"
	log := s.operationLogger(ctx, op, actor, taskID)

	if !level.Assignable() {
		return nil, NewServiceError(op, "invalid access level", domain.ErrUnassignableAccessLevel)
	}

	outbox := events.NewOutbox(s.publisher, s.logger)
	var result *domain.AccessGrant

	err := s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		tasks, access := s.tasks.WithTx(tx), s.access.WithTx(tx)

		task, grant, err := s.collaborator(ctx, op, tasks, access, actor, taskID, userID)
		if err != nil {
			return err
		}
		result = grant
		if grant.Level == level {
			log.Debug("access level unchanged, skipping update")
			return nil
		}

		if err := access.UpdateGrantLevel(ctx, taskID, userID, level); err != nil {
			return NewServiceError(op, "failed to save access level", err)
		}
		grant.Level = level

		event, err := events.NewEvent(events.AccessChanged, events.AccessPayload{
			TaskID:            task.ID,
			TaskTitle:         task.Title,
			RecipientID:       userID,
			RecipientUsername: grant.Username,
			ActorUsername:     actor.Username,
			AccessLevel:       level,
		})
		if err != nil {
			return NewServiceError(op, "failed to build access event", err)
		}
		outbox.Add(event)
		return nil
	})
	if err != nil {
		outbox.Discard()
		return nil, err
	}

	s.flush(ctx, log, outbox)
	return result, nil
}

// Remove implements AccessService.Remove
func (s *accessServiceImpl) Remove(ctx context.Context, actor Actor, taskID, userID uuid.UUID) error {
	const op = "remove_access"
	log := s.operationLogger(ctx, op, actor, taskID)

	outbox := events.NewOutbox(s.publisher, s.logger)

	err := s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		tasks, access := s.tasks.WithTx(tx), s.access.WithTx(tx)

		task, grant, err := s.collaborator(ctx, op, tasks, access, actor, taskID, userID)
		if err != nil {
			return err
		}
		if err := access.DeleteGrant(ctx, taskID, userID); err != nil {
			return NewServiceError(op, "failed to delete access grant", err)
		}

		event, err := events.NewEvent(events.AccessRemoved, events.AccessPayload{
			TaskID:            task.ID,
			TaskTitle:         task.Title,
			RecipientID:       userID,
			RecipientUsername: grant.Username,
			ActorUsername:     actor.Username,
			AccessLevel:       grant.Level,
		})
		if err != nil {
			return NewServiceError(op, "failed to build access event", err)
		}
		outbox.Add(event)
		return nil
	})
	if err != nil {
		outbox.Discard()
		return err
	}

	s.flush(ctx, log, outbox)
	log.Info("access removed", slog.String("collaborator_id", userID.String()))
	return nil
}

// ownedTask locks the task and checks the actor holds owner access on it.
func (s *accessServiceImpl) ownedTask(
	ctx context.Context,
	op string,
	tasks store.TaskStore,
	actor Actor,
	taskID uuid.UUID,
) (*domain.Task, error) {
	task, err := tasks.GetForUpdate(ctx, taskID)
	if err != nil {
		return nil, NewServiceError(op, "failed to load task", err)
	}
	if err := authorize(ctx, tasks, task, actor.UserID, domain.AccessLevelOwner); err != nil {
		return nil, NewServiceError(op, "task not accessible", err)
	}
	return task, nil
}

// collaborator loads the task the actor owns and the grant held by userID.
func (s *accessServiceImpl) collaborator(
	ctx context.Context,
	op string,
	tasks store.TaskStore,
	access store.AccessStore,
	actor Actor,
	taskID, userID uuid.UUID,
) (*domain.Task, *domain.AccessGrant, error) {
	task, err := s.ownedTask(ctx, op, tasks, actor, taskID)
	if err != nil {
		return nil, nil, err
	}
	if userID == task.OwnerID {
		return nil, nil, NewServiceError(op, "owner access is fixed", domain.ErrOwnerAccessImmutable)
	}
	grant, err := access.GetGrant(ctx, taskID, userID)
	if err != nil {
		return nil, nil, NewServiceError(op, "failed to load access grant", err)
	}
	return task, grant, nil
}

func (s *accessServiceImpl) operationLogger(ctx context.Context, op string, actor Actor, taskID uuid.UUID) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("operation", op),
		slog.String("task_id", taskID.String()),
		slog.String("user_id", actor.UserID.String()),
	)
}

// flush publishes the committed events. A publish failure is logged and
// not returned.
func (s *accessServiceImpl) flush(ctx context.Context, log *slog.Logger, outbox *events.Outbox) {
	if err := outbox.Flush(ctx); err != nil {
		log.Error("failed to publish access events", slog.String("error", err.Error()))
	}
}
