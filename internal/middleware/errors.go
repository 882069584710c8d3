package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/cbdb-network/cbdbnet/internal/httputil"
	"github.com/cbdb-network/cbdbnet/internal/metrics"
)

// respondError writes the shared error body and counts the rejection under
// its code, so throttled and unauthenticated requests show up next to
// handler errors.
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}
