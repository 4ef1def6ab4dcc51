package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AchievementKey is the stable identifier of an achievement. Display names
// may change; keys may not.
type AchievementKey string

// Known achievement keys.
const (
	AchievementNewbie         AchievementKey = "newbie"
	AchievementSprinter       AchievementKey = "sprinter"
	AchievementPlanner        AchievementKey = "planner"
	AchievementCategorizer    AchievementKey = "categorizer"
	AchievementDeadlineMaster AchievementKey = "deadline_master"
	AchievementPriorityGuru   AchievementKey = "priority_guru"
	AchievementSubtaskKing    AchievementKey = "subtask_king"
	AchievementNightWatcher   AchievementKey = "night_watcher"
	AchievementEpicFinish     AchievementKey = "epic_finish"
)

// CompletionPolicy decides how a decrement treats an already completed
// achievement. The completed flag itself never reverts.
type CompletionPolicy string

const (
	// CompletionPolicyDecrement keeps lowering progress after completion.
	CompletionPolicyDecrement CompletionPolicy = "decrement"
	// CompletionPolicyFreeze stops evaluating an achievement once completed.
	CompletionPolicyFreeze CompletionPolicy = "freeze"
)

// Common validation errors for Achievement
var (
	ErrEmptyAchievementKey     = errors.New("achievement key cannot be empty")
	ErrEmptyAchievementName    = errors.New("achievement name cannot be empty")
	ErrInvalidAchievementGoal  = errors.New("achievement target must be at least 1")
	ErrInvalidCompletionPolicy = errors.New("invalid completion policy")
)

// ParseCompletionPolicy converts a configured policy name.
func ParseCompletionPolicy(name string) (CompletionPolicy, error) {
	switch p := CompletionPolicy(strings.ToLower(name)); p {
	case CompletionPolicyDecrement, CompletionPolicyFreeze:
		return p, nil
	default:
		return "", ErrInvalidCompletionPolicy
	}
}

// Achievement is a global, admin-defined goal.
type Achievement struct {
	ID          uuid.UUID      `db:"id"          json:"id"`
	Key         AchievementKey `db:"key"         json:"key"`
	Name        string         `db:"name"        json:"name"`
	Description string         `db:"description" json:"description"`
	Target      int            `db:"target"      json:"target"`
	CreatedAt   time.Time      `db:"created_at"  json:"created_at"`
}

// NewAchievement creates a new achievement definition.
func NewAchievement(key AchievementKey, name, description string, target int) (*Achievement, error) {
	a := &Achievement{
		ID:          uuid.New(),
		Key:         key,
		Name:        strings.TrimSpace(name),
		Description: description,
		Target:      target,
		CreatedAt:   time.Now().UTC(),
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// Validate checks if the Achievement has valid data.
func (a *Achievement) Validate() error {
	if strings.TrimSpace(string(a.Key)) == "" {
		return ErrEmptyAchievementKey
	}
	if a.Name == "" {
		return ErrEmptyAchievementName
	}
	if a.Target < 1 {
		return ErrInvalidAchievementGoal
	}
	return nil
}

// UserAchievementProgress tracks one user's progress towards one achievement.
// Progress stays within [0, Target]; Completed never reverts once set.
type UserAchievementProgress struct {
	ID            uuid.UUID      `db:"id"             json:"id"`
	UserID        uuid.UUID      `db:"user_id"        json:"user_id"`
	AchievementID uuid.UUID      `db:"achievement_id" json:"achievement_id"`
	Key           AchievementKey `db:"key"            json:"key"`
	Name          string         `db:"name"           json:"name"`
	Description   string         `db:"description"    json:"description"`
	Target        int            `db:"target"         json:"target"`
	Progress      int            `db:"progress"       json:"progress"`
	Completed     bool           `db:"completed"      json:"completed"`
	CompletedAt   *time.Time     `db:"completed_at"   json:"completed_at,omitempty"`
}

// Increment adds one to progress, capped at Target. It returns true only
// on the call that flips Completed to true.
func (p *UserAchievementProgress) Increment(now time.Time) bool {
	if p.Progress < p.Target {
		p.Progress++
	}
	if p.Completed || p.Progress < p.Target {
		return false
	}
	p.Completed = true
	completedAt := now.UTC()
	p.CompletedAt = &completedAt
	return true
}

// Decrement subtracts one from progress, floored at zero. Under
// CompletionPolicyFreeze a completed record is left untouched.
// It reports whether progress changed.
func (p *UserAchievementProgress) Decrement(policy CompletionPolicy) bool {
	if p.Completed && policy == CompletionPolicyFreeze {
		return false
	}
	if p.Progress == 0 {
		return false
	}
	p.Progress--
	return true
}
