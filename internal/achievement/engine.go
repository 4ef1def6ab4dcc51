package achievement

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// lockStripes is the number of per-user mutexes. Users hashing to the same
// stripe are serialised with each other.
const lockStripes = 64

// Notifier announces unlocked achievements.
type Notifier interface {
	NotifyAchievement(ctx context.Context, userID uuid.UUID, username string, progress *domain.UserAchievementProgress) (*domain.Notification, error)
}

// LifecycleEvent is a task transition made by one user.
type LifecycleEvent struct {
	UserID     uuid.UUID
	Username   string
	Transition Transition
}

// EngineConfig holds the engine settings.
type EngineConfig struct {
	// CompletionPolicy decides whether completed achievements keep
	// reacting to decrements.
	CompletionPolicy domain.CompletionPolicy
}

// Engine applies achievement rules to task lifecycle events.
type Engine struct {
	transactor   store.Transactor
	achievements store.AchievementStore
	registry     Registry
	notifier     Notifier
	policy       domain.CompletionPolicy
	now          func() time.Time
	logger       *slog.Logger

	locks [lockStripes]sync.Mutex
}

// NewEngine creates an Engine. An empty completion policy means
// domain.CompletionPolicyDecrement.
func NewEngine(
	transactor store.Transactor,
	achievements store.AchievementStore,
	registry Registry,
	notifier Notifier,
	config EngineConfig,
	logger *slog.Logger,
) *Engine {
	if transactor == nil || achievements == nil || notifier == nil {
		panic("achievement engine dependencies cannot be nil")
	}
	if config.CompletionPolicy == "" {
		config.CompletionPolicy = domain.CompletionPolicyDecrement
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transactor:   transactor,
		achievements: achievements,
		registry:     registry,
		notifier:     notifier,
		policy:       config.CompletionPolicy,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "achievement_engine")),
	}
}

// Apply evaluates every achievement of the acting user against the
// transition and persists the resulting progress in one transaction. Users
// are processed one event at a time; different users proceed in parallel.
// Unlock notifications are sent after the transaction commits.
func (e *Engine) Apply(ctx context.Context, event LifecycleEvent) error {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("user_id", event.UserID.String()),
		slog.String("action", string(event.Transition.Action)))

	if event.Transition.Now.IsZero() {
		event.Transition.Now = e.now()
	}

	lock := e.lockFor(event.UserID)
	lock.Lock()
	defer lock.Unlock()

	var unlocked []*domain.UserAchievementProgress
	err := e.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		unlocked = nil
		achievements := e.achievements.WithTx(tx)

		rows, err := achievements.ListProgressForUpdate(ctx, event.UserID)
		if err != nil {
			return fmt.Errorf("failed to load progress: %w", err)
		}

		for _, row := range rows {
			changed, crossed := e.step(log, row, event.Transition)
			if !changed {
				continue
			}
			if err := achievements.UpdateProgress(ctx, row); err != nil {
				return fmt.Errorf("failed to save progress of %s: %w", row.Key, err)
			}
			if crossed {
				unlocked = append(unlocked, row)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to apply achievement progress", slog.String("error", err.Error()))
		return fmt.Errorf("failed to apply achievement progress: %w", err)
	}

	for _, row := range unlocked {
		log.Info("achievement unlocked",
			slog.String("achievement", string(row.Key)),
			slog.Int("target", row.Target))
		if _, err := e.notifier.NotifyAchievement(ctx, event.UserID, event.Username, row); err != nil {
			log.Error("failed to notify achievement",
				slog.String("error", err.Error()),
				slog.String("achievement", string(row.Key)))
		}
	}

	return nil
}

// step applies the row's rule to the transition. It reports whether the
// row changed and whether it became completed.
// Completed rows still run through their rules under
// CompletionPolicyDecrement, so reverting the task that unlocked an
// achievement lowers its progress again; only CompletionPolicyFreeze skips
// completed rows the way a strictly incomplete-only evaluation would.
func (e *Engine) step(log *slog.Logger, row *domain.UserAchievementProgress, t Transition) (changed, crossed bool) {
	if row.Completed && e.policy == domain.CompletionPolicyFreeze {
		return false, false
	}

	rule, ok := e.registry.Lookup(row.Key)
	if !ok {
		return false, false
	}

	delta, err := evaluate(rule, t)
	if err != nil {
		log.Error("achievement rule failed",
			slog.String("error", err.Error()),
			slog.String("achievement", string(row.Key)))
		return false, false
	}

	switch delta {
	case Increment:
		before := row.Progress
		crossed = row.Increment(t.Now)
		return crossed || row.Progress != before, crossed
	case Decrement:
		return row.Decrement(e.policy), false
	default:
		return false, false
	}
}

// evaluate runs a rule, turning a panic into an error
func evaluate(rule Rule, t Transition) (delta Delta, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %s panicked: %v\n%s", rule.Key(), r, debug.Stack())
			delta = NoChange
		}
	}()
	return rule.Evaluate(t), nil
}

func (e *Engine) lockFor(userID uuid.UUID) *sync.Mutex {
	return &e.locks[binary.BigEndian.Uint32(userID[12:])%lockStripes]
}

// HandleEvent implements events.Handler for events.TaskLifecycle.
func (e *Engine) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TaskLifecycle {
		return nil
	}

	var payload events.TaskLifecyclePayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal lifecycle event: %w", err)
	}

	return e.Apply(ctx, LifecycleEvent{
		UserID:   payload.UserID,
		Username: payload.Username,
		Transition: Transition{
			Prev:   payload.Prev,
			Next:   payload.Next,
			Action: payload.Action,
			Now:    payload.OccurredAt,
		},
	})
}

var _ events.Handler = (*Engine)(nil)
