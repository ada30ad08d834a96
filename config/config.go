// Package config loads service configuration from defaults, an optional
// YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	LedgerSQLite = "sqlite"
	LedgerTables = "aztables"
)

// Config holds all configuration for the API and the worker.
type Config struct {
	Debug       bool   `mapstructure:"debug"`
	ListenPort  string `mapstructure:"listen_port"`
	AppTimezone string `mapstructure:"app_timezone"`

	SQLitePath              string `mapstructure:"sqlite_path"`
	LedgerBackend           string `mapstructure:"ledger_backend"`
	StorageConnectionString string `mapstructure:"storage_connection_string"`
	LedgerTable             string `mapstructure:"ledger_table"`
	NotifyQueue             string `mapstructure:"notify_queue"`

	RedisConnectionString string        `mapstructure:"redis_connection_string"`
	CacheTTL              time.Duration `mapstructure:"cache_ttl"`
	ScheduleRegistryTTL   time.Duration `mapstructure:"schedule_registry_ttl"`
	IdempotencyTTL        time.Duration `mapstructure:"idempotency_ttl"`

	FCMProjectID       string `mapstructure:"fcm_project_id"`
	FCMCredentialsFile string `mapstructure:"fcm_credentials_file"`
	FCMCredentialsJSON string `mapstructure:"fcm_credentials_json"`
	FCMTopic           string `mapstructure:"fcm_topic"`

	Auth0Domain    string `mapstructure:"auth0_domain"`
	Auth0Audience  string `mapstructure:"auth0_audience"`
	Auth0TestMode  bool   `mapstructure:"auth0_test_mode"`
	TestJWTSecret  string `mapstructure:"test_jwt_secret"`
	AdminRoleClaim string `mapstructure:"admin_role_claim"`
	AdminRole      string `mapstructure:"admin_role"`

	WorkerPollInterval      time.Duration `mapstructure:"worker_poll_interval"`
	WorkerVisibilityTimeout time.Duration `mapstructure:"worker_visibility_timeout"`

	location *time.Location
}

// Load reads configuration. path names an optional YAML file; environment
// variables (upper snake case of each key) override both the file and the
// defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	v.AutomaticEnv()
	_ = v.BindEnv("listen_port", "LISTEN_PORT", "FUNCTIONS_CUSTOMHANDLER_PORT")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults configures default values. Every key needs one so that
// environment variables are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("listen_port", "8080")
	v.SetDefault("app_timezone", "UTC")

	v.SetDefault("sqlite_path", "data/faithexercises.db")
	v.SetDefault("ledger_backend", LedgerSQLite)
	v.SetDefault("storage_connection_string", "")
	v.SetDefault("ledger_table", "TaskProgress")
	v.SetDefault("notify_queue", "task-notifications")

	v.SetDefault("redis_connection_string", "")
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("schedule_registry_ttl", "192h")
	v.SetDefault("idempotency_ttl", "24h")

	v.SetDefault("fcm_project_id", "")
	v.SetDefault("fcm_credentials_file", "")
	v.SetDefault("fcm_credentials_json", "")
	v.SetDefault("fcm_topic", "all_users")

	v.SetDefault("auth0_domain", "")
	v.SetDefault("auth0_audience", "")
	v.SetDefault("auth0_test_mode", false)
	v.SetDefault("test_jwt_secret", "")
	v.SetDefault("admin_role_claim", "roles")
	v.SetDefault("admin_role", "admin")

	v.SetDefault("worker_poll_interval", "1s")
	v.SetDefault("worker_visibility_timeout", "1m")
}

// Validate checks settings shared by every command and resolves the time
// zone.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return fmt.Errorf("invalid app_timezone %q: %w", c.AppTimezone, err)
	}
	c.location = loc

	switch c.LedgerBackend {
	case LedgerSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required")
		}
	case LedgerTables:
		if c.StorageConnectionString == "" || c.LedgerTable == "" {
			return errors.New("ledger_backend aztables requires storage_connection_string and ledger_table")
		}
	default:
		return fmt.Errorf("invalid ledger_backend %q: must be %s or %s", c.LedgerBackend, LedgerSQLite, LedgerTables)
	}
	if c.CacheTTL < 0 || c.ScheduleRegistryTTL < 0 || c.IdempotencyTTL <= 0 {
		return errors.New("cache_ttl and schedule_registry_ttl must not be negative, idempotency_ttl must be positive")
	}
	if c.WorkerPollInterval <= 0 || c.WorkerVisibilityTimeout <= 0 {
		return errors.New("worker_poll_interval and worker_visibility_timeout must be positive")
	}
	return nil
}

// ValidateServe checks settings the HTTP API needs.
func (c *Config) ValidateServe() error {
	if c.Auth0TestMode {
		if c.TestJWTSecret == "" {
			return errors.New("auth0_test_mode requires test_jwt_secret")
		}
		return nil
	}
	if c.Auth0Domain == "" || c.Auth0Audience == "" {
		return errors.New("missing Auth0 config: auth0_domain and auth0_audience are required")
	}
	return nil
}

// ValidateQueue checks settings deferred notifications need.
func (c *Config) ValidateQueue() error {
	if c.StorageConnectionString == "" || c.NotifyQueue == "" {
		return errors.New("storage_connection_string and notify_queue are required")
	}
	if c.RedisConnectionString == "" {
		return errors.New("redis_connection_string is required")
	}
	return nil
}

// Location is the application time zone. Calendar days and period keys are
// derived in it.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ListenAddr is the HTTP listen address.
func (c *Config) ListenAddr() string {
	return ":" + c.ListenPort
}
