package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKNOTIFY_SCHEDULER_SCAN_INTERVAL.
const EnvPrefix = "TASKNOTIFY"

// setDefaults registers a default for every key. Registering a key is also
// what makes viper resolve it from the environment during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.scan_interval", "1m")
	v.SetDefault("scheduler.max_concurrent_dispatches", 20)
	v.SetDefault("scheduler.worker_count", 4)
	v.SetDefault("scheduler.queue_size", 100)
	v.SetDefault("scheduler.dispatch_timeout", "30s")

	v.SetDefault("events.worker_count", 2)
	v.SetDefault("events.queue_size", 50)

	v.SetDefault("notifications.delivery_timeout", "5s")
	v.SetDefault("notifications.cleanup_interval", "48h")
	v.SetDefault("notifications.default_lead_time_minutes", 60)

	v.SetDefault("achievements.completion_policy", "decrement")
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file instead of
// searching for config.yaml in the working directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
