package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides,
// e.g. TASKBOARD_SERVER_PORT overrides server.port.
const envPrefix = "TASKBOARD"

// Load reads configuration from an optional config file and environment
// variables. Environment variables take precedence over file values, which
// take precedence over defaults. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the default value for every setting so that a bare
// environment only needs to provide secrets and connection strings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Registered empty so Unmarshal sees the keys when they arrive via
	// environment variables only. Validation rejects them if left unset.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", time.Hour)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("cache.list_ttl", 300*time.Second)
	v.SetDefault("cache.item_ttl", 600*time.Second)
	v.SetDefault("cache.stats_ttl", 120*time.Second)

	v.SetDefault("rate_limit.window", 60*time.Second)
	v.SetDefault("rate_limit.limit", 100)
	v.SetDefault("rate_limit.fail_open", true)

	v.SetDefault("jobs.max_retry", 3)
	v.SetDefault("jobs.backoff_base", 2000*time.Millisecond)
	v.SetDefault("jobs.concurrency", 10)
	v.SetDefault("jobs.completed_retention", 3600*time.Second)
	v.SetDefault("jobs.failed_retention", 86400*time.Second)

	v.SetDefault("scheduler.overdue_scan_schedule", "@hourly")
	v.SetDefault("scheduler.archive_prune_schedule", "@hourly")
}
