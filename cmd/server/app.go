package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/achievement"
	"github.com/phrazzld/tasknotify/internal/config"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
	"github.com/phrazzld/tasknotify/internal/live"
	"github.com/phrazzld/tasknotify/internal/notify"
	"github.com/phrazzld/tasknotify/internal/platform/postgres"
	"github.com/phrazzld/tasknotify/internal/service"
	"github.com/phrazzld/tasknotify/internal/service/auth"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/phrazzld/tasknotify/internal/worker"
	"go.uber.org/multierr"
)

// shutdownTimeout bounds each graceful shutdown step.
const shutdownTimeout = 10 * time.Second

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sqlx.DB

	// Stores
	taskStore         store.TaskStore
	policyStore       store.PolicyStore
	notificationStore store.NotificationStore
	achievementStore  store.AchievementStore
	accessStore       store.AccessStore

	// Services
	jwtService         auth.JWTService
	taskService        service.TaskService
	accessService      service.AccessService
	achievementService service.AchievementService

	// Delivery
	hub      *live.Hub
	notifier *notify.Notifier

	// Background work
	bus            *events.Bus
	eventPool      *worker.Pool
	dispatchPool   *worker.Pool
	scheduler      *notify.Scheduler
	cleaner        *notify.Cleaner
	achievementEng *achievement.Engine
}

// newApplication wires every component on top of an open database. Nothing
// is started; see startWorkers and Run.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sqlx.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	defaults := domain.DefaultNotificationPolicy()
	defaults.LeadTimeMinutes = cfg.Notifications.DefaultLeadTimeMinutes

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.policyStore = postgres.NewPostgresPolicyStore(db, logger, defaults)
	app.notificationStore = postgres.NewPostgresNotificationStore(db, logger)
	app.achievementStore = postgres.NewPostgresAchievementStore(db, logger)
	app.accessStore = postgres.NewPostgresAccessStore(db, logger)
	transactor := store.SQLTransactor{DB: db}

	app.hub = live.NewHub(logger)
	app.notifier = notify.NewNotifier(
		app.notificationStore,
		app.policyStore,
		app.hub,
		cfg.Notifications.DeliveryTimeout,
		logger,
	)

	app.eventPool = worker.NewPool(worker.PoolConfig{
		Name:        "events",
		WorkerCount: cfg.Events.WorkerCount,
		QueueSize:   cfg.Events.QueueSize,
	}, logger)
	app.bus = events.NewBus(app.eventPool, logger)

	completion, err := domain.ParseCompletionPolicy(cfg.Achievements.CompletionPolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid achievements.completion_policy: %w", err)
	}
	app.achievementEng = achievement.NewEngine(
		transactor,
		app.achievementStore,
		achievement.NewRegistry(achievement.DefaultRules()...),
		app.notifier,
		achievement.EngineConfig{CompletionPolicy: completion},
		logger,
	)
	app.subscribe()

	app.dispatchPool = worker.NewPool(worker.PoolConfig{
		Name:        "deadline_dispatch",
		WorkerCount: cfg.Scheduler.WorkerCount,
		QueueSize:   cfg.Scheduler.QueueSize,
		JobTimeout:  cfg.Scheduler.DispatchTimeout,
	}, logger)
	app.scheduler = notify.NewScheduler(
		app.taskStore,
		app.policyStore,
		notify.NewProcessor(app.taskStore, app.policyStore, app.notifier, logger),
		worker.NewGovernor(cfg.Scheduler.MaxConcurrentDispatches),
		app.dispatchPool,
		notify.SchedulerConfig{
			ScanInterval:    cfg.Scheduler.ScanInterval,
			DispatchTimeout: cfg.Scheduler.DispatchTimeout,
		},
		logger,
	)
	app.cleaner = notify.NewCleaner(app.notificationStore, cfg.Notifications.CleanupInterval, logger)

	app.taskService, err = service.NewTaskService(transactor, app.taskStore, app.bus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.accessService, err = service.NewAccessService(transactor, app.taskStore, app.accessStore, app.bus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create access service: %w", err)
	}
	app.achievementService, err = service.NewAchievementService(transactor, app.achievementStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create achievement service: %w", err)
	}

	logger.Info("application initialized",
		slog.String("completion_policy", string(completion)),
		slog.Int("default_lead_time_minutes", defaults.LeadTimeMinutes))
	return app, nil
}

// subscribe registers the event consumers on the bus.
func (app *application) subscribe() {
	app.bus.Subscribe(events.TaskLifecycle, app.achievementEng)
	app.bus.Subscribe(events.TaskUpdated, notify.NewFanOut(
		app.taskStore,
		app.hub,
		app.config.Notifications.DeliveryTimeout,
		app.logger,
	))

	handler := notify.NewEventHandler(app.notifier, app.logger)
	for _, t := range handler.Types() {
		app.bus.Subscribe(t, handler)
	}
}

// startWorkers starts both worker pools.
func (app *application) startWorkers() {
	app.eventPool.Start()
	app.dispatchPool.Start()
}

// Run starts the background loops and serves HTTP until ctx is cancelled,
// then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	app.startWorkers()

	if app.config.Scheduler.Enabled {
		app.scheduler.Start(ctx)
	} else {
		app.logger.Warn("deadline scheduler disabled by configuration")
	}
	app.cleaner.Start(ctx)

	err := app.startHTTPServer(ctx, app.setupRouter())
	app.cleanup()
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the producers first, then drains the pools, then closes
// live connections and the database.
func (app *application) cleanup() {
	app.scheduler.Stop()
	app.cleaner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := multierr.Combine(
		app.dispatchPool.Shutdown(ctx),
		app.eventPool.Shutdown(ctx),
	)
	if err != nil {
		app.logger.Error("worker pools did not drain in time", slog.String("error", err.Error()))
	}

	app.hub.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database connection", slog.String("error", err.Error()))
	}

	app.logger.Info("application shutdown completed")
}
