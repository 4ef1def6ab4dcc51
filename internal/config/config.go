package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"        validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"      validate:"required"`
	Auth          AuthConfig          `mapstructure:"auth"          validate:"required"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"     validate:"required"`
	Events        EventsConfig        `mapstructure:"events"        validate:"required"`
	Notifications NotificationsConfig `mapstructure:"notifications" validate:"required"`
	Achievements  AchievementsConfig  `mapstructure:"achievements"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// AllowedOrigins feeds the CORS middleware. An empty list disables cross-origin access.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains the settings needed to validate bearer tokens.
// Token issuance lives in a separate identity service.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// SchedulerConfig controls the periodic deadline scan and the dispatch pool
// behind it.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// ScanInterval is the fixed period between two deadline scans.
	ScanInterval time.Duration `mapstructure:"scan_interval" validate:"gt=0"`
	// MaxConcurrentDispatches is the permit count of the admission governor.
	MaxConcurrentDispatches int `mapstructure:"max_concurrent_dispatches" validate:"gte=1"`
	WorkerCount             int `mapstructure:"worker_count"              validate:"gte=1"`
	QueueSize               int `mapstructure:"queue_size"                validate:"gte=1"`
	// DispatchTimeout bounds a single dispatch unit, all recipients included.
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout" validate:"gt=0"`
}

// EventsConfig sizes the pool that delivers domain events to subscribers.
type EventsConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize   int `mapstructure:"queue_size"   validate:"gte=1"`
}

// NotificationsConfig holds delivery and retention settings for notifications.
type NotificationsConfig struct {
	// DeliveryTimeout bounds one persist-and-push call for one recipient.
	DeliveryTimeout        time.Duration `mapstructure:"delivery_timeout"          validate:"gt=0"`
	CleanupInterval        time.Duration `mapstructure:"cleanup_interval"          validate:"gt=0"`
	DefaultLeadTimeMinutes int           `mapstructure:"default_lead_time_minutes" validate:"gte=1"`
}

// AchievementsConfig holds achievement engine settings.
type AchievementsConfig struct {
	// CompletionPolicy decides what a decrement does to an already completed
	// achievement: "decrement" keeps lowering progress, "freeze" leaves it alone.
	// The completed flag never reverts under either policy.
	CompletionPolicy string `mapstructure:"completion_policy" validate:"required,oneof=decrement freeze"`
}
