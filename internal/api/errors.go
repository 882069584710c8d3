package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/httputil"
	"github.com/cbdb-network/cbdbnet/internal/metrics"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = httputil.CodeInvalidRequest
	ErrCodeNotFound        = httputil.CodeNotFound
	ErrCodeInternalError   = httputil.CodeInternalError
	ErrCodeUnauthorized    = httputil.CodeUnauthorized
	ErrCodeRateLimited     = httputil.CodeRateLimited
	ErrCodeUnavailable     = httputil.CodeUnavailable
	ErrCodeValidationError = httputil.CodeValidationError
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a service error onto a response. Server-side
// failures are logged under action; their text never reaches the client.
func respondServiceError(c *gin.Context, log *logrus.Logger, action string, err error) {
	status, code, message := httputil.Classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error(action)
	}

	respondError(c, status, code, message)
}
