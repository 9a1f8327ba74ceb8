package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/pkg/handlers"
	"github.com/clearcase/worker/pkg/routes"
	"github.com/clearcase/worker/pkg/storage"
)

var errInvalidAssetID = errors.New("invalid asset id")

// ObjectHandler serves asset metadata and the stored source object.
type ObjectHandler struct {
	assets assets.System
	store  storage.System
	logger *slog.Logger
}

func NewObjectHandler(sys assets.System, store storage.System, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{
		assets: sys,
		store:  store,
		logger: logger.With("handler", "objects"),
	}
}

func (h *ObjectHandler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/assets",
		Routes: []routes.Route{
			routes.Get("/{id}", h.Find),
			routes.Get("/{id}/object", h.Download),
		},
	}
}

// Find returns the asset row.
func (h *ObjectHandler) Find(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.asset(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, asset)
}

// Download streams the stored object of the asset.
func (h *ObjectHandler) Download(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.asset(w, r)
	if !ok {
		return
	}

	obj, err := h.store.Download(r.Context(), asset.StorageKey)
	if err != nil {
		handlers.RespondError(w, h.logger, objectStatus(err), err)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = asset.MimeType
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(asset.FileName)),
	)
	if obj.ETag != "" {
		w.Header().Set("ETag", obj.ETag)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

func (h *ObjectHandler) asset(w http.ResponseWriter, r *http.Request) (*assets.Asset, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidAssetID)
		return nil, false
	}

	asset, err := h.assets.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, objectStatus(err), err)
		return nil, false
	}
	return asset, true
}

func objectStatus(err error) int {
	switch {
	case errors.Is(err, assets.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmptyKey), errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrPermissionDenied):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
