// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes a standardized JSON error response and aborts the
// request. Errors are never cacheable.
func RespondError(c *gin.Context, status int, code, message string) {
	c.Header("Cache-Control", "no-store")

	body := ErrorBody{Code: code, Message: message}

	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok {
			body.RequestID = s
		}
	}

	c.AbortWithStatusJSON(status, body)
}

// Error codes shared by HTTP and WebSocket responses.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeNotFound        = "not_found"
	CodeInternalError   = "internal_error"
	CodeUnauthorized    = "unauthorized"
	CodeRateLimited     = "rate_limited"
	CodeUnavailable     = "unavailable"
	CodeValidationError = "validation_error"
)

// Classify maps a service error to an HTTP status, error code and client-safe
// message. Unrecognized errors are internal and their text is not exposed.
func Classify(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, models.ErrPersonNotFound), errors.Is(err, models.ErrNoPath):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest, CodeValidationError, err.Error()
	case errors.Is(err, models.ErrNoSeeds),
		errors.Is(err, models.ErrTooManySeeds),
		errors.Is(err, models.ErrInvalidPersonID),
		errors.Is(err, models.ErrInvalidRelationType),
		errors.Is(err, models.ErrDepthOutOfRange):
		return http.StatusBadRequest, CodeInvalidRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeInternalError, "query timed out"
	default:
		return http.StatusInternalServerError, CodeInternalError, "internal server error"
	}
}
