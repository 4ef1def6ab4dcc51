package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/phrazzld/tasknotify/internal/worker"
)

// dispatchJobType names deadline dispatch jobs in pool logs.
const dispatchJobType = "deadline_dispatch"

// SchedulerConfig holds the scan timing.
type SchedulerConfig struct {
	// ScanInterval is the time between two scans.
	ScanInterval time.Duration

	// DispatchTimeout bounds one task's dispatch job.
	DispatchTimeout time.Duration
}

// ScanReport summarises one scan.
type ScanReport struct {
	// Candidates is the number of tasks the scan window returned.
	Candidates int `json:"candidates"`

	// Submitted is the number of dispatch jobs handed to the pool.
	Submitted int `json:"submitted"`

	// SkippedNoPermit counts tasks left for the next scan because the
	// governor had no free permit.
	SkippedNoPermit int `json:"skipped_no_permit"`

	// SkippedInFlight counts tasks whose dispatch from an earlier scan was
	// still running.
	SkippedInFlight int `json:"skipped_in_flight"`

	// Failed counts tasks whose grants could not be read or whose job the
	// pool rejected.
	Failed int `json:"failed"`
}

// Scheduler periodically scans for tasks approaching their deadline and
// dispatches one job per task on a worker pool.
type Scheduler struct {
	tasks     store.TaskQuery
	policies  store.PolicyStore
	processor *Processor
	governor  *worker.Governor
	pool      *worker.Pool
	config    SchedulerConfig
	now       func() time.Time
	logger    *slog.Logger

	inFlightMu sync.Mutex
	inFlight   map[uuid.UUID]struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. The pool must be started separately
// and outlive the scheduler.
func NewScheduler(
	tasks store.TaskQuery,
	policies store.PolicyStore,
	processor *Processor,
	governor *worker.Governor,
	pool *worker.Pool,
	config SchedulerConfig,
	logger *slog.Logger,
) *Scheduler {
	if tasks == nil || policies == nil || processor == nil || governor == nil || pool == nil {
		panic("scheduler dependencies cannot be nil")
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = time.Minute
	}
	if config.DispatchTimeout <= 0 {
		config.DispatchTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		tasks:     tasks,
		policies:  policies,
		processor: processor,
		governor:  governor,
		pool:      pool,
		config:    config,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "deadline_scheduler")),
		inFlight:  make(map[uuid.UUID]struct{}),
	}
}

// Start runs a scan immediately and then once per scan interval until ctx
// is cancelled or Stop is called. Calling Start on a running scheduler has
// no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("deadline scheduler started",
		slog.Duration("scan_interval", s.config.ScanInterval),
		slog.Int("max_concurrent_dispatches", s.governor.Capacity()))
}

// Stop halts the scan loop and waits for a running scan to return.
// Dispatch jobs already on the pool are not waited for.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("deadline scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scan and keeps the loop alive whatever happens inside it
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("deadline scan panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("deadline scan failed", slog.String("error", err.Error()))
	}
}

// RunOnce performs one scan: it computes the global window from the
// largest lead time of any user, fetches the un-notified tasks due inside
// it and submits a dispatch job for each. It does not wait for the jobs.
// An error is returned only when the window or the candidate list cannot
// be computed.
func (s *Scheduler) RunOnce(ctx context.Context) (ScanReport, error) {
	var report ScanReport
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	lookahead, err := s.policies.MaxLeadTime(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to compute scan window: %w", err)
	}
	if lookahead < 1 {
		lookahead = domain.FallbackLookaheadMinutes
	}
	end := now.Add(time.Duration(lookahead) * time.Minute)

	tasks, err := s.tasks.FindNotNotifiedUpcoming(ctx, now, end)
	if err != nil {
		return report, fmt.Errorf("failed to find upcoming tasks: %w", err)
	}
	report.Candidates = len(tasks)

	for _, task := range tasks {
		s.submit(ctx, log, task, &report)
	}

	log.Info("deadline scan completed",
		slog.Int("lookahead_minutes", lookahead),
		slog.Int("candidates", report.Candidates),
		slog.Int("submitted", report.Submitted),
		slog.Int("skipped_no_permit", report.SkippedNoPermit),
		slog.Int("skipped_in_flight", report.SkippedInFlight),
		slog.Int("failed", report.Failed))

	return report, nil
}

// submit resolves the task's recipients and hands a dispatch job to the
// pool if the governor admits it.
func (s *Scheduler) submit(ctx context.Context, log *slog.Logger, task *domain.Task, report *ScanReport) {
	taskLog := log.With(slog.String("task_id", task.ID.String()))

	if s.isInFlight(task.ID) {
		report.SkippedInFlight++
		return
	}

	grants, err := s.tasks.FindAccessGrants(ctx, task.ID)
	if err != nil {
		taskLog.Error("failed to load access grants", slog.String("error", err.Error()))
		report.Failed++
		return
	}
	recipients := domain.ResolveRecipients(task, grants)

	if !s.governor.TryAcquire() {
		report.SkippedNoPermit++
		return
	}
	s.setInFlight(task.ID, true)

	// The permit and in-flight entry are returned exactly once, also when a
	// forced pool shutdown discards the job unexecuted.
	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			s.setInFlight(task.ID, false)
			s.governor.Release()
		})
	}

	job := worker.NewCancellableJob(dispatchJobType, func(jobCtx context.Context) error {
		defer release()

		dispatchCtx, cancel := context.WithTimeout(jobCtx, s.config.DispatchTimeout)
		defer cancel()

		s.processor.Process(logger.WithLogger(dispatchCtx, log), task, recipients)
		return nil
	}, func() {
		taskLog.Warn("dispatch job discarded before running")
		release()
	})

	if err := s.pool.Submit(job); err != nil {
		release()
		taskLog.Warn("dispatch job rejected by pool", slog.String("error", err.Error()))
		report.Failed++
		return
	}
	report.Submitted++
}

func (s *Scheduler) isInFlight(id uuid.UUID) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

func (s *Scheduler) setInFlight(id uuid.UUID, on bool) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if on {
		s.inFlight[id] = struct{}{}
	} else {
		delete(s.inFlight, id)
	}
}
