package reminders

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound         = errors.New("reminder not found")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrInvalidFilter    = errors.New("invalid reminder filter")
)

// MapHTTPStatus maps reminder domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidFilter) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
