// Package config loads the worker configuration from TOML files and
// CLEARCASE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/clearcase/worker/pkg/database"
	"github.com/clearcase/worker/pkg/queue"
	"github.com/clearcase/worker/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvClearcaseEnv             = "CLEARCASE_ENV"
	EnvClearcaseShutdownTimeout = "CLEARCASE_SHUTDOWN_TIMEOUT"
	EnvClearcaseVersion         = "CLEARCASE_VERSION"
	EnvClearcaseLogLevel        = "CLEARCASE_LOG_LEVEL"
)

// DatabaseEnv names the database variables. cmd/migrate reads the same set.
var DatabaseEnv = &database.Env{
	URL:             "CLEARCASE_DB_URL",
	Host:            "CLEARCASE_DB_HOST",
	Port:            "CLEARCASE_DB_PORT",
	Name:            "CLEARCASE_DB_NAME",
	User:            "CLEARCASE_DB_USER",
	Password:        "CLEARCASE_DB_PASSWORD",
	SSLMode:         "CLEARCASE_DB_SSL_MODE",
	MaxOpenConns:    "CLEARCASE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CLEARCASE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CLEARCASE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CLEARCASE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "CLEARCASE_STORAGE_CONTAINER_NAME",
	ConnectionString: "CLEARCASE_STORAGE_CONNECTION_STRING",
	AccountURL:       "CLEARCASE_STORAGE_ACCOUNT_URL",
	MaxObjectSize:    "CLEARCASE_STORAGE_MAX_OBJECT_SIZE",
}

var queueEnv = &queue.Env{
	URL:          "CLEARCASE_QUEUE_URL",
	Name:         "CLEARCASE_QUEUE_NAME",
	PoolSize:     "CLEARCASE_QUEUE_POOL_SIZE",
	MinIdleConns: "CLEARCASE_QUEUE_MIN_IDLE_CONNS",
	DialTimeout:  "CLEARCASE_QUEUE_DIAL_TIMEOUT",
	PollInterval: "CLEARCASE_QUEUE_POLL_INTERVAL",
}

// Config is the root configuration for the ClearCase worker.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	API             APIConfig        `toml:"api"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	Queue           queue.Config     `toml:"queue"`
	Worker          WorkerConfig     `toml:"worker"`
	Extraction      ExtractionConfig `toml:"extraction"`
	Formatter       FormatterConfig  `toml:"formatter"`
	Reminders       RemindersConfig  `toml:"reminders"`
	Push            PushConfig       `toml:"push"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
	LogLevel        string           `toml:"log_level"`
}

// Env returns the CLEARCASE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvClearcaseEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// SlogLevel returns LogLevel as a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	level.UnmarshalText([]byte(c.LogLevel))
	return level
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	mergeString(&c.Version, overlay.Version)
	mergeString(&c.LogLevel, overlay.LogLevel)
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Queue.Merge(&overlay.Queue)
	c.Worker.Merge(&overlay.Worker)
	c.Extraction.Merge(&overlay.Extraction)
	c.Formatter.Merge(&overlay.Formatter)
	c.Reminders.Merge(&overlay.Reminders)
	c.Push.Merge(&overlay.Push)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Database.Finalize(DatabaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Queue.Finalize(queueEnv); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Worker.Finalize(); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	if err := c.Extraction.Finalize(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Formatter.Finalize(); err != nil {
		return fmt.Errorf("formatter: %w", err)
	}
	if err := c.Reminders.Finalize(); err != nil {
		return fmt.Errorf("reminders: %w", err)
	}
	if err := c.Push.Finalize(); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	envString(&c.ShutdownTimeout, EnvClearcaseShutdownTimeout)
	envString(&c.Version, EnvClearcaseVersion)
	envString(&c.LogLevel, EnvClearcaseLogLevel)
}

func (c *Config) validate() error {
	if err := checkDurations("shutdown_timeout", c.ShutdownTimeout); err != nil {
		return err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvClearcaseEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
