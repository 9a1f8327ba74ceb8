package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvPushProvider    = "CLEARCASE_PUSH_PROVIDER"
	EnvPushEndpoint    = "CLEARCASE_PUSH_ENDPOINT"
	EnvPushAccessToken = "CLEARCASE_PUSH_ACCESS_TOKEN"
	EnvPushRate        = "CLEARCASE_PUSH_RATE"
	EnvPushBurst       = "CLEARCASE_PUSH_BURST"
	EnvPushTimeout     = "CLEARCASE_PUSH_TIMEOUT"
)

// PushConfig holds the push gateway settings used for reminder delivery.
type PushConfig struct {
	Provider    string  `toml:"provider"`
	Endpoint    string  `toml:"endpoint"`
	AccessToken string  `toml:"access_token"`
	Rate        float64 `toml:"rate"`
	Burst       int     `toml:"burst"`
	Timeout     string  `toml:"timeout"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *PushConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PushConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PushConfig) Merge(overlay *PushConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.AccessToken != "" {
		c.AccessToken = overlay.AccessToken
	}
	if overlay.Rate != 0 {
		c.Rate = overlay.Rate
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *PushConfig) loadDefaults() {
	if c.Provider == "" {
		c.Provider = "log"
	}
	if c.Endpoint == "" {
		c.Endpoint = "https://exp.host/--/api/v2/push/send"
	}
	if c.Rate == 0 {
		c.Rate = 10
	}
	if c.Burst == 0 {
		c.Burst = 5
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

func (c *PushConfig) loadEnv() {
	if v := os.Getenv(EnvPushProvider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvPushEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvPushAccessToken); v != "" {
		c.AccessToken = v
	}
	if v := os.Getenv(EnvPushRate); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Rate = f
		}
	}
	if v := os.Getenv(EnvPushBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Burst = n
		}
	}
	if v := os.Getenv(EnvPushTimeout); v != "" {
		c.Timeout = v
	}
}

func (c *PushConfig) validate() error {
	switch c.Provider {
	case "log", "expo":
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be positive")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
