package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// CacheMaxAge lets clients reuse successful GET responses on the
	// CacheablePrefixes routes for this long. Zero marks everything no-store.
	CacheMaxAge       time.Duration
	CacheablePrefixes []string
}

// SecurityHeaders returns Gin middleware that sets security response headers.
// HSTS is only sent on requests that arrived over HTTPS, directly or through
// a proxy, so plain loopback deployments are not pinned to TLS.
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	cacheable := fmt.Sprintf("private, max-age=%d", int(opts.CacheMaxAge.Seconds()))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		if opts.CacheMaxAge >= time.Second && isCacheable(c, opts.CacheablePrefixes) {
			h.Set("Cache-Control", cacheable)
		} else {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// isCacheable matches GET and HEAD requests whose route pattern starts with
// one of prefixes. Error responses reset Cache-Control themselves.
func isCacheable(c *gin.Context, prefixes []string) bool {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return false
	}

	route := c.FullPath()
	for _, p := range prefixes {
		if route != "" && strings.HasPrefix(route, p) {
			return true
		}
	}

	return false
}
