package audit

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound  = errors.New("audit entry not found")
	ErrInvalidID = errors.New("invalid case id")
)

// MapHTTPStatus maps audit domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
