package achievement

import (
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
)

// Delta is the progress change a rule asks for.
type Delta int

// Possible deltas
const (
	Decrement Delta = -1
	NoChange  Delta = 0
	Increment Delta = 1
)

// Transition describes one task mutation. Prev is nil when the task was
// just created.
type Transition struct {
	Prev   *domain.TaskSnapshot
	Next   domain.TaskSnapshot
	Action events.LifecycleAction
	Now    time.Time
}

// JustCompleted reports whether the task moved into done.
func (t Transition) JustCompleted() bool {
	return t.Prev != nil && !t.Prev.IsDone() && t.Next.IsDone()
}

// Reverted reports whether the task moved out of done.
func (t Transition) Reverted() bool {
	return t.Prev != nil && t.Prev.IsDone() && !t.Next.IsDone()
}

// Rule computes the progress change of one achievement for a transition.
// Rules must not have side effects.
type Rule interface {
	Key() domain.AchievementKey
	Evaluate(t Transition) Delta
}

type ruleFunc struct {
	key domain.AchievementKey
	fn  func(t Transition) Delta
}

func (r ruleFunc) Key() domain.AchievementKey  { return r.key }
func (r ruleFunc) Evaluate(t Transition) Delta { return r.fn(t) }

// NewRule builds a Rule from a function.
func NewRule(key domain.AchievementKey, fn func(t Transition) Delta) Rule {
	return ruleFunc{key: key, fn: fn}
}

// Registry maps achievement keys to their rules.
type Registry map[domain.AchievementKey]Rule

// NewRegistry builds a registry from rules. A later rule with the same key
// replaces an earlier one.
func NewRegistry(rules ...Rule) Registry {
	r := make(Registry, len(rules))
	for _, rule := range rules {
		r[rule.Key()] = rule
	}
	return r
}

// Lookup returns the rule registered for key.
func (r Registry) Lookup(key domain.AchievementKey) (Rule, bool) {
	rule, ok := r[key]
	return rule, ok
}
