package reminders

import (
	"log/slog"
	"net/http"

	"github.com/clearcase/worker/pkg/handlers"
	"github.com/clearcase/worker/pkg/pagination"
	"github.com/clearcase/worker/pkg/routes"
)

// Handler provides the read-only reminder listing endpoint.
type Handler struct {
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(store Store, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		store:      store,
		logger:     logger.With("handler", "reminders"),
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reminders",
		Routes: []routes.Route{
			routes.Get("", h.List),
		},
	}
}

// List returns a page of reminders filtered by case, user, status, or reason.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.store.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
