package handlers

import (
	"errors"
	"net/http"

	"example.com/rfidscan/internal/registry"
	"example.com/rfidscan/internal/scanlog"
	"example.com/rfidscan/internal/search"
	"example.com/rfidscan/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrNotFound           = &Error{Message: "Scanner not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	ErrInternalServer     = &Error{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	ErrForbidden          = &Error{Message: "Caller does not own this scanner", StatusCode: http.StatusForbidden, Code: "FORBIDDEN"}
	ErrConflict           = &Error{Message: "Scanner already exists", StatusCode: http.StatusConflict, Code: "CONFLICT"}
	ErrInvalidTagLength   = &Error{Message: "Tag UID must be exactly 7 bytes", StatusCode: http.StatusBadRequest, Code: "INVALID_TAG_LENGTH"}
	ErrServiceUnavailable = &Error{Message: "Scan search is not enabled", StatusCode: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE"}
)

// NewValidationError creates a validation error with a custom message
func NewValidationError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
	}
}

// toAPIError maps domain errors onto API errors
func toAPIError(err error) *Error {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, registry.ErrAlreadyExists):
		return ErrConflict
	case errors.Is(err, registry.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, registry.ErrUnauthorized):
		return ErrForbidden
	case errors.Is(err, scanlog.ErrInvalidTagLength):
		return ErrInvalidTagLength
	case errors.Is(err, service.ErrInvalidRequest):
		return NewValidationError(err.Error())
	case errors.Is(err, search.ErrDisabled):
		return ErrServiceUnavailable
	default:
		return ErrInternalServer
	}
}

// writeError writes err as an ErrorResponse
func writeError(c *gin.Context, log *logrus.Logger, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).Error("Unhandled error")
	}
	c.JSON(apiErr.StatusCode, ErrorResponse{
		Message: apiErr.Message,
		Code:    apiErr.Code,
	})
}
