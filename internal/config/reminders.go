package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvRemindersEnabled        = "CLEARCASE_REMINDERS_ENABLED"
	EnvRemindersDailyLimit     = "CLEARCASE_REMINDERS_DAILY_LIMIT"
	EnvRemindersMaxAttempts    = "CLEARCASE_REMINDERS_MAX_ATTEMPTS"
	EnvRemindersBaseRetryDelay = "CLEARCASE_REMINDERS_BASE_RETRY_DELAY"
	EnvRemindersClaimLease     = "CLEARCASE_REMINDERS_CLAIM_LEASE"
	EnvRemindersBatchSize      = "CLEARCASE_REMINDERS_BATCH_SIZE"
	EnvRemindersDeliveryHour   = "CLEARCASE_REMINDERS_DELIVERY_HOUR"
	EnvRemindersFanOut         = "CLEARCASE_REMINDERS_FAN_OUT"
)

// RemindersConfig holds the deadline reminder scheduling and delivery policy.
type RemindersConfig struct {
	Enabled        *bool  `toml:"enabled"`
	DailyLimit     int    `toml:"daily_limit"`
	MaxAttempts    int    `toml:"max_attempts"`
	BaseRetryDelay string `toml:"base_retry_delay"`
	ClaimLease     string `toml:"claim_lease"`
	BatchSize      int    `toml:"batch_size"`
	DeliveryHour   *int   `toml:"delivery_hour"`
	FanOut         int    `toml:"fan_out"`
}

// IsEnabled reports whether reminders are globally enabled.
func (c *RemindersConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Hour returns the UTC delivery hour for reminders.
func (c *RemindersConfig) Hour() int {
	if c.DeliveryHour == nil {
		return 14
	}
	return *c.DeliveryHour
}

// BaseRetryDelayDuration returns BaseRetryDelay as a time.Duration.
func (c *RemindersConfig) BaseRetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.BaseRetryDelay)
	return d
}

// ClaimLeaseDuration returns ClaimLease as a time.Duration.
func (c *RemindersConfig) ClaimLeaseDuration() time.Duration {
	d, _ := time.ParseDuration(c.ClaimLease)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RemindersConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites set fields from overlay.
func (c *RemindersConfig) Merge(overlay *RemindersConfig) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.DailyLimit != 0 {
		c.DailyLimit = overlay.DailyLimit
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BaseRetryDelay != "" {
		c.BaseRetryDelay = overlay.BaseRetryDelay
	}
	if overlay.ClaimLease != "" {
		c.ClaimLease = overlay.ClaimLease
	}
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.DeliveryHour != nil {
		c.DeliveryHour = overlay.DeliveryHour
	}
	if overlay.FanOut != 0 {
		c.FanOut = overlay.FanOut
	}
}

func (c *RemindersConfig) loadDefaults() {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.DailyLimit == 0 {
		c.DailyLimit = 4
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseRetryDelay == "" {
		c.BaseRetryDelay = "10m"
	}
	if c.ClaimLease == "" {
		c.ClaimLease = "2m"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 25
	}
	if c.DeliveryHour == nil {
		hour := 14
		c.DeliveryHour = &hour
	}
	if c.FanOut == 0 {
		c.FanOut = 4
	}
}

func (c *RemindersConfig) loadEnv() {
	if v := os.Getenv(EnvRemindersEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = &b
		}
	}
	if v := os.Getenv(EnvRemindersDailyLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DailyLimit = n
		}
	}
	if v := os.Getenv(EnvRemindersMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvRemindersBaseRetryDelay); v != "" {
		c.BaseRetryDelay = v
	}
	if v := os.Getenv(EnvRemindersClaimLease); v != "" {
		c.ClaimLease = v
	}
	if v := os.Getenv(EnvRemindersBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
	if v := os.Getenv(EnvRemindersDeliveryHour); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DeliveryHour = &n
		}
	}
	if v := os.Getenv(EnvRemindersFanOut); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FanOut = n
		}
	}
}

func (c *RemindersConfig) validate() error {
	if c.DailyLimit < 1 {
		return fmt.Errorf("daily_limit must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if _, err := time.ParseDuration(c.BaseRetryDelay); err != nil {
		return fmt.Errorf("invalid base_retry_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.ClaimLease); err != nil {
		return fmt.Errorf("invalid claim_lease: %w", err)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive")
	}
	if h := *c.DeliveryHour; h < 0 || h > 23 {
		return fmt.Errorf("delivery_hour out of range: %d", h)
	}
	if c.FanOut < 1 {
		return fmt.Errorf("fan_out must be positive")
	}
	return nil
}
