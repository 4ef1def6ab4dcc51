package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// NotificationCategory groups notification types under one user-facing switch.
type NotificationCategory string

// Categories a user can enable or disable independently.
const (
	CategoryTaskDeadline NotificationCategory = "task"
	CategoryInvitation   NotificationCategory = "invitation"
	CategoryAchievement  NotificationCategory = "achievement"
)

const (
	// DefaultLeadTimeMinutes is the reminder lead time of a user who never
	// changed their settings.
	DefaultLeadTimeMinutes = 60

	// FallbackLookaheadMinutes is the scan window used when no user has
	// deadline reminders enabled.
	FallbackLookaheadMinutes = 1440
)

// ErrInvalidLeadTime is returned when a policy's lead time is not positive.
var ErrInvalidLeadTime = errors.New("lead time must be at least one minute")

// NotificationPolicy holds one user's notification preferences.
type NotificationPolicy struct {
	TaskEnabled        bool `json:"taskEnabled"`
	InvitationEnabled  bool `json:"invitationEnabled"`
	AchievementEnabled bool `json:"achievementEnabled"`
	LeadTimeMinutes    int  `json:"leadTimeMinutes"`
}

// DefaultNotificationPolicy enables every category with the default lead time.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		TaskEnabled:        true,
		InvitationEnabled:  true,
		AchievementEnabled: true,
		LeadTimeMinutes:    DefaultLeadTimeMinutes,
	}
}

// Enabled reports whether notifications of the category should be sent.
// Unknown categories are always enabled.
func (p NotificationPolicy) Enabled(category NotificationCategory) bool {
	switch category {
	case CategoryTaskDeadline:
		return p.TaskEnabled
	case CategoryInvitation:
		return p.InvitationEnabled
	case CategoryAchievement:
		return p.AchievementEnabled
	default:
		return true
	}
}

// LeadTime returns the lead time as a duration.
func (p NotificationPolicy) LeadTime() time.Duration {
	return time.Duration(p.LeadTimeMinutes) * time.Minute
}

// Validate checks if the policy has valid data.
func (p NotificationPolicy) Validate() error {
	if p.LeadTimeMinutes < 1 {
		return ErrInvalidLeadTime
	}
	return nil
}

// DecodeNotificationPolicy parses a stored settings document. Empty or
// malformed documents, and documents with an invalid lead time, decode to
// fallback.
func DecodeNotificationPolicy(data []byte, fallback NotificationPolicy) NotificationPolicy {
	if len(data) == 0 {
		return fallback
	}
	policy := fallback
	if err := json.Unmarshal(data, &policy); err != nil {
		return fallback
	}
	if policy.Validate() != nil {
		return fallback
	}
	return policy
}
