package notify

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/mocks"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okPusher() *mocks.MockPusher {
	p := &mocks.MockPusher{}
	p.On("Push", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return p
}

type user struct {
	id   uuid.UUID
	name string
}

func newUser(name string) user {
	return user{id: uuid.New(), name: name}
}

func policyWithLead(minutes int) domain.NotificationPolicy {
	p := domain.DefaultNotificationPolicy()
	p.LeadTimeMinutes = minutes
	return p
}

func taskDueIn(owner user, d time.Duration) *domain.Task {
	due := time.Now().Add(d)
	now := time.Now().UTC()
	return &domain.Task{
		ID:            uuid.New(),
		Title:         "Ship release",
		OwnerID:       owner.id,
		OwnerUsername: owner.name,
		Status:        domain.TaskStatusTodo,
		Priority:      domain.TaskPriorityMedium,
		DueDate:       &due,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func ownerRecipient(u user) domain.Recipient {
	return domain.Recipient{UserID: u.id, Username: u.name, Level: domain.AccessLevelOwner, IsOwner: true}
}

func collaborator(u user, level domain.AccessLevel) domain.Recipient {
	return domain.Recipient{UserID: u.id, Username: u.name, Level: level}
}

func grantFor(task *domain.Task, u user, level domain.AccessLevel) domain.AccessGrant {
	return domain.AccessGrant{TaskID: task.ID, UserID: u.id, Username: u.name, Level: level}
}
