package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvWorkerWaitTime          = "CLEARCASE_WORKER_WAIT_TIME"
	EnvWorkerVisibilityTimeout = "CLEARCASE_WORKER_VISIBILITY_TIMEOUT"
	EnvWorkerMaxReceives       = "CLEARCASE_WORKER_MAX_RECEIVES"
	EnvWorkerMessageTimeout    = "CLEARCASE_WORKER_MESSAGE_TIMEOUT"
)

// WorkerConfig holds the poll loop parameters.
type WorkerConfig struct {
	WaitTime          string `toml:"wait_time"`
	VisibilityTimeout string `toml:"visibility_timeout"`
	MaxReceives       int    `toml:"max_receives"`
	MessageTimeout    string `toml:"message_timeout"`
}

// WaitTimeDuration returns WaitTime as a time.Duration.
func (c *WorkerConfig) WaitTimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.WaitTime)
	return d
}

// VisibilityTimeoutDuration returns VisibilityTimeout as a time.Duration.
func (c *WorkerConfig) VisibilityTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.VisibilityTimeout)
	return d
}

// MessageTimeoutDuration returns MessageTimeout as a time.Duration.
func (c *WorkerConfig) MessageTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.MessageTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkerConfig) Merge(overlay *WorkerConfig) {
	if overlay.WaitTime != "" {
		c.WaitTime = overlay.WaitTime
	}
	if overlay.VisibilityTimeout != "" {
		c.VisibilityTimeout = overlay.VisibilityTimeout
	}
	if overlay.MaxReceives != 0 {
		c.MaxReceives = overlay.MaxReceives
	}
	if overlay.MessageTimeout != "" {
		c.MessageTimeout = overlay.MessageTimeout
	}
}

func (c *WorkerConfig) loadDefaults() {
	if c.WaitTime == "" {
		c.WaitTime = "20s"
	}
	if c.VisibilityTimeout == "" {
		c.VisibilityTimeout = "5m"
	}
	if c.MaxReceives == 0 {
		c.MaxReceives = 5
	}
	if c.MessageTimeout == "" {
		c.MessageTimeout = "4m"
	}
}

func (c *WorkerConfig) loadEnv() {
	if v := os.Getenv(EnvWorkerWaitTime); v != "" {
		c.WaitTime = v
	}
	if v := os.Getenv(EnvWorkerVisibilityTimeout); v != "" {
		c.VisibilityTimeout = v
	}
	if v := os.Getenv(EnvWorkerMaxReceives); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxReceives = n
		}
	}
	if v := os.Getenv(EnvWorkerMessageTimeout); v != "" {
		c.MessageTimeout = v
	}
}

func (c *WorkerConfig) validate() error {
	if _, err := time.ParseDuration(c.WaitTime); err != nil {
		return fmt.Errorf("invalid wait_time: %w", err)
	}
	visibility, err := time.ParseDuration(c.VisibilityTimeout)
	if err != nil {
		return fmt.Errorf("invalid visibility_timeout: %w", err)
	}
	message, err := time.ParseDuration(c.MessageTimeout)
	if err != nil {
		return fmt.Errorf("invalid message_timeout: %w", err)
	}
	if message <= 0 || message > visibility {
		return fmt.Errorf("message_timeout must be positive and no longer than visibility_timeout")
	}
	if c.MaxReceives < 1 {
		return fmt.Errorf("max_receives must be positive")
	}
	return nil
}
