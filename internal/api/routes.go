package api

import (
	"net/http"

	"github.com/clearcase/worker/internal/reminders"
	"github.com/clearcase/worker/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	routes.Register(
		mux,
		domain.Audit.Handler().Routes(),
		reminders.NewHandler(domain.Reminders, runtime.Logger, runtime.Pagination).Routes(),
		NewObjectHandler(domain.Assets, runtime.Storage, runtime.Logger).Routes(),
	)
}
