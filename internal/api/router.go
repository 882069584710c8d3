package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/dbpool"
	"github.com/cbdb-network/cbdbnet/internal/middleware"
	"github.com/cbdb-network/cbdbnet/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	DB          *dbpool.DB
	Hub         *ws.Hub
	Network     NetworkService
	People      PersonService
	Warm        Warmer
	CORSOrigins []string
	// CacheMaxAge is advertised on successful read-only GETs.
	CacheMaxAge time.Duration
	Version     string
	APIToken    string
	MaxNodes    int
	RateLimit   float64
	RateBurst   int
}

// Router-level limits.
const (
	maxBodySize      = 64 << 10 // 64 KB
	defaultRateLimit = 10       // requests per second per IP
	defaultRateBurst = 20       // token bucket burst size
	exploreCost      = 5        // tokens charged for a full exploration
)

// setupMiddleware configures all middleware on the Gin engine and returns the
// rate limiter so routes can charge extra for expensive calls.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) *middleware.RateLimiter {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		CacheMaxAge:       deps.CacheMaxAge,
		CacheablePrefixes: []string{"/api/v1/people/", "/api/v1/network/", "/api/v1/path/"},
	}))
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))

	rateLimit, rateBurst := deps.RateLimit, deps.RateBurst
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	if rateBurst <= 0 {
		rateBurst = defaultRateBurst
	}

	limiter := middleware.NewRateLimiter(ctx, rateLimit, rateBurst)
	r.Use(limiter.Handler())
	r.Use(middleware.HTTPMetrics(middleware.MetricsOptions{
		Skip:      []string{"/metrics", "/api/v1/health", "/api/v1/ready"},
		LongLived: []string{"/api/v1/ws/explore"},
	}))

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return limiter
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps, limiter *middleware.RateLimiter) {
	log := deps.Log

	health := NewHealthHandler(deps.DB, deps.Hub, log, deps.Version)
	people := NewPeopleHandler(deps.People, log)
	network := NewNetworkHandler(deps.Network, deps.Warm, deps.MaxNodes, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// All other API routes require the API token when one is configured.
	guard := middleware.NewFailureGuard(ctx, log)
	api.Use(middleware.TokenAuth(deps.APIToken, log, guard))

	// exploreCost is charged on top of the one token every request pays.
	expensive := limiter.HandlerWithCost(exploreCost - 1)

	api.GET("/people/:id", people.Get)

	api.GET("/network/:id", expensive, network.Person)
	api.GET("/network/:id/recursive", expensive, network.Recursive)
	api.GET("/network/:id/stats", network.Stats)
	api.POST("/network/explore", expensive, network.Explore)
	api.POST("/network/warm", expensive, network.Warm)

	api.GET("/path/:from/:to", expensive, network.Path)

	if deps.Hub != nil {
		api.GET("/ws/explore", expensive, wsHandler(ctx, log, deps.Hub, deps.Network, deps.CORSOrigins))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	limiter := setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps, limiter)

	return r
}
