package achievement

import (
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
)

// sprintWindow is how soon after creation a task must be completed to count
// towards the sprinter achievement.
const sprintWindow = time.Hour

// DefaultRules returns the built-in rules. Seeded achievements without an
// entry here (subtask_king, night_watcher, epic_finish) stay inert.
func DefaultRules() []Rule {
	return []Rule{
		NewRule(domain.AchievementNewbie, newbie),
		NewRule(domain.AchievementSprinter, sprinter),
		NewRule(domain.AchievementPlanner, planner),
		NewRule(domain.AchievementCategorizer, categorizer),
		NewRule(domain.AchievementDeadlineMaster, deadlineMaster),
		NewRule(domain.AchievementPriorityGuru, priorityGuru),
	}
}

// completionRule returns a Delta for top-level completions: Increment when
// the task was just completed and counts is true, Decrement when it was
// reverted.
func completionRule(t Transition, counts bool) Delta {
	if t.Action != events.ActionComplete || !t.Next.IsTopLevel() {
		return NoChange
	}
	switch {
	case t.JustCompleted():
		if counts {
			return Increment
		}
	case t.Reverted():
		return Decrement
	}
	return NoChange
}

func newbie(t Transition) Delta {
	return completionRule(t, true)
}

func sprinter(t Transition) Delta {
	return completionRule(t, t.Now.Add(-sprintWindow).Before(t.Next.CreatedAt))
}

func planner(t Transition) Delta {
	if t.Action == events.ActionCreate && t.Next.IsTopLevel() && t.Next.DueDate != nil {
		return Increment
	}
	return NoChange
}

func categorizer(t Transition) Delta {
	if t.Action == events.ActionCreate && t.Next.IsTopLevel() && t.Next.CategoryID != nil {
		return Increment
	}
	return NoChange
}

func deadlineMaster(t Transition) Delta {
	if t.Action != events.ActionComplete || !t.Next.IsTopLevel() {
		return NoChange
	}
	due := t.Next.DueDate
	switch {
	case t.JustCompleted():
		if due != nil && t.Now.Before(*due) {
			return Increment
		}
	case t.Reverted():
		if due != nil {
			return Decrement
		}
	}
	return NoChange
}

func priorityGuru(t Transition) Delta {
	if !t.Next.IsTopLevel() {
		return NoChange
	}
	high := t.Next.Priority == domain.TaskPriorityHigh

	switch t.Action {
	case events.ActionCreate:
		if high {
			return Increment
		}
	case events.ActionComplete:
		if t.Prev == nil {
			return NoChange
		}
		wasHigh := t.Prev.Priority == domain.TaskPriorityHigh
		switch {
		case high && !wasHigh:
			return Increment
		case wasHigh && !high:
			return Decrement
		}
	}
	return NoChange
}
