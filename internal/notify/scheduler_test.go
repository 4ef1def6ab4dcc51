package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/mocks"
	"github.com/phrazzld/tasknotify/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedulerFixture struct {
	tasks         *mocks.MockTaskStore
	policies      *mocks.MockPolicyStore
	notifications *mocks.MockNotificationStore
	governor      *worker.Governor
	pool          *worker.Pool
	scheduler     *Scheduler
}

func newSchedulerFixture(t *testing.T, permits int, policies map[uuid.UUID]domain.NotificationPolicy) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		tasks:         &mocks.MockTaskStore{},
		policies:      mocks.NewMockPolicyStore(policies),
		notifications: &mocks.MockNotificationStore{},
		governor:      worker.NewGovernor(permits),
		pool:          worker.NewPool(worker.PoolConfig{Name: "dispatch", WorkerCount: 8, QueueSize: 50}, testLogger()),
	}
	notifier := NewNotifier(f.notifications, f.policies, okPusher(), time.Second, testLogger())
	processor := NewProcessor(f.tasks, f.policies, notifier, testLogger())
	f.scheduler = NewScheduler(f.tasks, f.policies, processor, f.governor, f.pool,
		SchedulerConfig{ScanInterval: time.Hour, DispatchTimeout: 5 * time.Second}, testLogger())

	f.pool.Start()
	t.Cleanup(f.pool.Stop)
	return f
}

// waitIdle waits until every dispatch job has released its permit.
func (f *schedulerFixture) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return f.governor.InFlight() == 0 }, 2*time.Second, 5*time.Millisecond)
}

// serveUntilNotified makes the task store return tasks until they are marked notified.
func (f *schedulerFixture) serveUntilNotified(tasks ...*domain.Task) {
	var mu sync.Mutex
	notified := make(map[uuid.UUID]bool)

	f.tasks.FindNotNotifiedUpcomingFn = func(ctx context.Context, start, end time.Time) ([]*domain.Task, error) {
		mu.Lock()
		defer mu.Unlock()
		var out []*domain.Task
		for _, task := range tasks {
			if !notified[task.ID] && !task.DueDate.Before(start) && !task.DueDate.After(end) {
				out = append(out, task)
			}
		}
		return out, nil
	}
	f.tasks.SetNotifiedFn = func(ctx context.Context, taskID uuid.UUID, dueDate time.Time) error {
		mu.Lock()
		defer mu.Unlock()
		notified[taskID] = true
		return nil
	}
}

func TestScheduler_WindowCoversLongestLeadTime(t *testing.T) {
	f := newSchedulerFixture(t, 5, map[uuid.UUID]domain.NotificationPolicy{
		uuid.New(): policyWithLead(30),
		uuid.New(): policyWithLead(180),
	})
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	f.scheduler.now = func() time.Time { return now }

	_, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, f.tasks.ScanWindows, 1)
	assert.Equal(t, now, f.tasks.ScanWindows[0][0])
	assert.Equal(t, now.Add(180*time.Minute), f.tasks.ScanWindows[0][1])
}

func TestScheduler_FallbackWindow(t *testing.T) {
	f := newSchedulerFixture(t, 5, nil)
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	f.scheduler.now = func() time.Time { return now }
	f.policies.MaxLeadTimeFn = func(ctx context.Context) (int, error) { return 0, nil }

	_, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(domain.FallbackLookaheadMinutes*time.Minute), f.tasks.ScanWindows[0][1])
}

func TestScheduler_AbortsWithoutWindow(t *testing.T) {
	f := newSchedulerFixture(t, 5, nil)
	f.policies.MaxLeadTimeFn = func(ctx context.Context) (int, error) { return 0, errors.New("db down") }

	_, err := f.scheduler.RunOnce(context.Background())
	assert.ErrorContains(t, err, "failed to compute scan window")
	assert.Empty(t, f.tasks.ScanWindows)
}

func TestScheduler_IdempotentNotify(t *testing.T) {
	owner := newUser("owner")
	f := newSchedulerFixture(t, 5, nil)
	task := taskDueIn(owner, 30*time.Minute)
	f.serveUntilNotified(task)

	first, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Submitted)
	f.waitIdle(t)

	second, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Candidates)
	f.waitIdle(t)

	assert.Equal(t, 1, f.tasks.SetNotifiedCount())
	assert.Len(t, f.notifications.For(owner.id), 1)
}

func TestScheduler_OwnerMissIsRetriedEveryTick(t *testing.T) {
	owner := newUser("owner")
	collab := newUser("collab")
	f := newSchedulerFixture(t, 5, map[uuid.UUID]domain.NotificationPolicy{
		owner.id:  policyWithLead(45),
		collab.id: policyWithLead(90),
	})
	f.policies.MaxLeadTimeFn = func(ctx context.Context) (int, error) { return 60, nil }

	task := taskDueIn(owner, 50*time.Minute)
	f.serveUntilNotified(task)
	f.tasks.FindAccessGrantsFn = func(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error) {
		return []domain.AccessGrant{grantFor(task, collab, domain.AccessLevelEdit)}, nil
	}

	for i := 0; i < 2; i++ {
		report, err := f.scheduler.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Candidates)
		assert.Equal(t, 1, report.Submitted)
		f.waitIdle(t)
	}

	assert.Empty(t, f.notifications.For(owner.id))
	assert.Len(t, f.notifications.For(collab.id), 2)
	assert.Equal(t, 0, f.tasks.SetNotifiedCount())
}

func TestScheduler_GovernorBound(t *testing.T) {
	const permits = 2
	const eligible = 5

	owner := newUser("owner")
	f := newSchedulerFixture(t, permits, nil)

	var tasks []*domain.Task
	for i := 0; i < eligible; i++ {
		tasks = append(tasks, taskDueIn(owner, time.Duration(10+i)*time.Minute))
	}
	f.serveUntilNotified(tasks...)

	release := make(chan struct{})
	var running, peak atomic.Int32
	f.notifications.CreateFn = func(ctx context.Context, n *domain.Notification) error {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		defer running.Add(-1)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	report, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, eligible, report.Candidates)
	assert.Equal(t, permits, report.Submitted)
	assert.Equal(t, eligible-permits, report.SkippedNoPermit)
	assert.Equal(t, permits, f.governor.InFlight())

	// a second tick while the first dispatches are still running
	again, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, permits, again.SkippedInFlight)
	assert.Equal(t, eligible-permits, again.SkippedNoPermit)
	assert.Equal(t, 0, again.Submitted)

	close(release)
	f.waitIdle(t)

	assert.LessOrEqual(t, int(peak.Load()), permits)
	assert.Equal(t, permits, f.tasks.SetNotifiedCount())

	// the skipped tasks are still eligible on the next tick
	next, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, eligible-permits, next.Candidates)
}

func TestScheduler_GrantFailureDoesNotAbortScan(t *testing.T) {
	owner := newUser("owner")
	f := newSchedulerFixture(t, 5, nil)
	broken := taskDueIn(owner, 10*time.Minute)
	fine := taskDueIn(owner, 20*time.Minute)
	f.serveUntilNotified(broken, fine)
	f.tasks.FindAccessGrantsFn = func(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error) {
		if taskID == broken.ID {
			return nil, errors.New("grant lookup failed")
		}
		return nil, nil
	}

	report, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Submitted)
	f.waitIdle(t)
	assert.Equal(t, []uuid.UUID{fine.ID}, f.tasks.SetNotifiedCalls)
}

func TestScheduler_RejectedJobReleasesPermit(t *testing.T) {
	owner := newUser("owner")
	f := newSchedulerFixture(t, 1, nil)
	f.serveUntilNotified(taskDueIn(owner, 10*time.Minute))
	f.pool.Stop()

	report, err := f.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, f.governor.InFlight())
}

func TestScheduler_ForcedPoolShutdownReleasesPermits(t *testing.T) {
	owner := newUser("owner")
	tasks := []*domain.Task{
		taskDueIn(owner, 10*time.Minute),
		taskDueIn(owner, 20*time.Minute),
		taskDueIn(owner, 30*time.Minute),
	}

	taskStore := &mocks.MockTaskStore{
		FindNotNotifiedUpcomingFn: func(ctx context.Context, start, end time.Time) ([]*domain.Task, error) {
			return tasks, nil
		},
	}
	policies := mocks.NewMockPolicyStore(nil)
	blocked := make(chan struct{}, len(tasks))
	policies.GetNotificationPolicyFn = func(ctx context.Context, userID uuid.UUID) (domain.NotificationPolicy, error) {
		blocked <- struct{}{}
		<-ctx.Done()
		return domain.NotificationPolicy{}, ctx.Err()
	}

	governor := worker.NewGovernor(5)
	pool := worker.NewPool(worker.PoolConfig{Name: "dispatch", WorkerCount: 1, QueueSize: 10}, testLogger())
	notifier := NewNotifier(&mocks.MockNotificationStore{}, policies, okPusher(), time.Second, testLogger())
	processor := NewProcessor(taskStore, policies, notifier, testLogger())
	scheduler := NewScheduler(taskStore, policies, processor, governor, pool,
		SchedulerConfig{ScanInterval: time.Hour, DispatchTimeout: time.Minute}, testLogger())
	pool.Start()

	report, err := scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Submitted)
	<-blocked

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	assert.Equal(t, 0, governor.InFlight())
	for _, task := range tasks {
		assert.False(t, scheduler.isInFlight(task.ID))
	}
}

func TestScheduler_StartStop(t *testing.T) {
	f := newSchedulerFixture(t, 1, nil)

	var scans atomic.Int32
	f.tasks.FindNotNotifiedUpcomingFn = func(ctx context.Context, start, end time.Time) ([]*domain.Task, error) {
		scans.Add(1)
		return nil, nil
	}

	f.scheduler.Start(context.Background())
	f.scheduler.Start(context.Background())
	require.Eventually(t, func() bool { return scans.Load() >= 1 }, time.Second, 5*time.Millisecond)

	f.scheduler.Stop()
	f.scheduler.Stop()
	assert.Equal(t, int32(1), scans.Load())
}
