package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"triplog/internal/recorder"
	"triplog/internal/repository"
	"triplog/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository/recorder errors to HTTP
// status codes.
func mapErrorToHTTPStatus(err error) int {
	var partial *service.PartialCommitError
	if errors.As(err, &partial) {
		return http.StatusInternalServerError
	}

	switch {
	// Missing identity
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrBadCredentials):
		return http.StatusUnauthorized

	// Ownership and permission failures
	case errors.Is(err, repository.ErrUnauthorized),
		errors.Is(err, recorder.ErrPermissionDenied):
		return http.StatusForbidden

	// Not found
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNoActiveRecording):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripName),
		errors.Is(err, service.ErrInvalidTripType),
		errors.Is(err, service.ErrInvalidPosition),
		errors.Is(err, service.ErrNothingToSave),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, recorder.ErrEmptyTripName),
		errors.Is(err, repository.ErrInvalidCursor),
		errors.Is(err, repository.ErrUnsupported):
		return http.StatusBadRequest

	// State machine and concurrency conflicts
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrCommitInProgress),
		errors.Is(err, recorder.ErrServiceDisabled),
		errors.Is(err, recorder.ErrNotIdle),
		errors.Is(err, recorder.ErrNotSampling):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
