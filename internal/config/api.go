package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/clearcase/worker/pkg/middleware"
	"github.com/clearcase/worker/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CLEARCASE_CORS_ENABLED",
	Origins:          "CLEARCASE_CORS_ORIGINS",
	AllowedMethods:   "CLEARCASE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CLEARCASE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "CLEARCASE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CLEARCASE_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "CLEARCASE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "CLEARCASE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds the read-only ops API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("CLEARCASE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
}

func (c *APIConfig) validate() error {
	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("base_path must be a single-level path: %s", c.BasePath)
	}
	return nil
}
