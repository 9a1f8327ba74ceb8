package config

import "os"

const EnvFormatterProvider = "CLEARCASE_FORMATTER_PROVIDER"

// FormatterConfig selects the verdict formatter. The provider name is
// checked when the formatter is constructed.
type FormatterConfig struct {
	Provider string `toml:"provider"`
}

// Finalize applies defaults and environment variable overrides.
func (c *FormatterConfig) Finalize() error {
	if c.Provider == "" {
		c.Provider = "deterministic"
	}
	if v := os.Getenv(EnvFormatterProvider); v != "" {
		c.Provider = v
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *FormatterConfig) Merge(overlay *FormatterConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
}
