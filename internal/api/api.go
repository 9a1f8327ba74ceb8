// Package api assembles the read-only ops API over audit entries, reminders,
// and stored asset objects.
package api

import (
	"net/http"

	"github.com/clearcase/worker/internal/config"
	"github.com/clearcase/worker/internal/infrastructure"
	"github.com/clearcase/worker/pkg/middleware"
	"github.com/clearcase/worker/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))

	return m, nil
}
