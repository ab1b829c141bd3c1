package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"      validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"      validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
	Jobs      JobsConfig      `mapstructure:"jobs"       validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"  validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}

// DatabaseConfig contains all database related settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// RedisConfig contains connection settings for the shared key-value store.
// The same instance backs the cache, the rate limiter, and the job queue.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// AuthConfig contains authentication and authorization settings.
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"        validate:"required,min=32"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"  validate:"required"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl" validate:"required"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"       validate:"gte=4,lte=31"`
}

// CacheConfig contains per-query-class cache TTLs.
type CacheConfig struct {
	ListTTL  time.Duration `mapstructure:"list_ttl"  validate:"required"`
	ItemTTL  time.Duration `mapstructure:"item_ttl"  validate:"required"`
	StatsTTL time.Duration `mapstructure:"stats_ttl" validate:"required"`
}

// RateLimitConfig contains fixed-window rate limiter settings.
// FailOpen controls the behavior when the key-value store is unreachable:
// true admits requests (degraded limiting), false rejects with 503.
type RateLimitConfig struct {
	Window   time.Duration `mapstructure:"window" validate:"required"`
	Limit    int64         `mapstructure:"limit"  validate:"required,gt=0"`
	FailOpen bool          `mapstructure:"fail_open"`
}

// JobsConfig contains background job queue settings.
type JobsConfig struct {
	MaxRetry           int           `mapstructure:"max_retry"           validate:"gte=0"`
	BackoffBase        time.Duration `mapstructure:"backoff_base"        validate:"required"`
	Concurrency        int           `mapstructure:"concurrency"         validate:"required,gt=0"`
	CompletedRetention time.Duration `mapstructure:"completed_retention" validate:"required"`
	FailedRetention    time.Duration `mapstructure:"failed_retention"    validate:"required"`
}

// SchedulerConfig contains settings for periodic background scans.
type SchedulerConfig struct {
	OverdueScanSchedule  string `mapstructure:"overdue_scan_schedule"  validate:"required"`
	ArchivePruneSchedule string `mapstructure:"archive_prune_schedule" validate:"required"`
}
