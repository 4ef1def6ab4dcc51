package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// NotificationSettingsRequest is the body of PUT /api/me/notification-settings.
type NotificationSettingsRequest struct {
	TaskEnabled        *bool `json:"taskEnabled"        validate:"required"`
	InvitationEnabled  *bool `json:"invitationEnabled"  validate:"required"`
	AchievementEnabled *bool `json:"achievementEnabled" validate:"required"`
	LeadTimeMinutes    int   `json:"leadTimeMinutes"    validate:"gte=1,lte=10080"`
}

// Policy converts the request into a domain policy.
func (r NotificationSettingsRequest) Policy() domain.NotificationPolicy {
	return domain.NotificationPolicy{
		TaskEnabled:        *r.TaskEnabled,
		InvitationEnabled:  *r.InvitationEnabled,
		AchievementEnabled: *r.AchievementEnabled,
		LeadTimeMinutes:    r.LeadTimeMinutes,
	}
}

// DefineAchievementRequest is the body of POST /api/achievements.
type DefineAchievementRequest struct {
	Key         string `json:"key"         validate:"required,max=64"`
	Name        string `json:"name"        validate:"required,max=255"`
	Description string `json:"description" validate:"max=1024"`
	Target      int    `json:"target"      validate:"gte=1"`
}

// DefineAchievementResponse reports the stored definition and how many
// users received a progress row.
type DefineAchievementResponse struct {
	Achievement *domain.Achievement `json:"achievement"`
	Seeded      int64               `json:"seeded"`
}

// AchievementProgressResponse is one row of GET /api/me/achievements.
type AchievementProgressResponse struct {
	AchievementID uuid.UUID  `json:"achievement_id"`
	Key           string     `json:"key"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Target        int        `json:"target"`
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title      string     `json:"title"       validate:"required,max=255"`
	ParentID   *uuid.UUID `json:"parent_id"`
	Priority   string     `json:"priority"    validate:"omitempty,oneof=low medium high"`
	CategoryID *uuid.UUID `json:"category_id"`
	DueDate    *time.Time `json:"due_date"`
}

// UpdateStatusRequest is the body of PATCH /api/tasks/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress done"`
}

// UpdatePriorityRequest is the body of PATCH /api/tasks/{id}/priority.
type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=low medium high"`
}

// UpdateDueDateRequest is the body of PATCH /api/tasks/{id}/due-date.
// A null due_date clears it.
type UpdateDueDateRequest struct {
	DueDate *time.Time `json:"due_date"`
}

// InviteRequest is the body of POST /api/tasks/{id}/invitations.
type InviteRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Level  string    `json:"level"   validate:"required,oneof=view edit"`
}

// ChangeAccessRequest is the body of PATCH /api/tasks/{id}/access/{userID}.
type ChangeAccessRequest struct {
	Level string `json:"level" validate:"required,oneof=view edit"`
}

func progressToResponse(rows []*domain.UserAchievementProgress) []AchievementProgressResponse {
	out := make([]AchievementProgressResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, AchievementProgressResponse{
			AchievementID: p.AchievementID,
			Key:           string(p.Key),
			Name:          p.Name,
			Description:   p.Description,
			Target:        p.Target,
			Progress:      p.Progress,
			Completed:     p.Completed,
			CompletedAt:   p.CompletedAt,
		})
	}
	return out
}
