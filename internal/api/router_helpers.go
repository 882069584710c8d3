package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/middleware"
	"github.com/cbdb-network/cbdbnet/internal/models"
	"github.com/cbdb-network/cbdbnet/internal/ws"
)

func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, explorer ws.Explorer, corsOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS origins are reused as WebSocket origin patterns. The config
		// validator ensures these are safe host patterns (no wildcards etc.).
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		session := ws.NewSession(hub, conn, explorer, c.ClientIP(), log)
		if !hub.Register(session) {
			conn.Close(websocket.StatusTryAgainLater, "too many connections") //nolint:errcheck // best-effort

			return
		}

		session.Run(appCtx)
	}
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}
		log.WithFields(fields).Info("request")
	}
}

// personParam parses a positive person ID path parameter, responding 400 on failure.
func personParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, models.ErrInvalidPersonID.Error())

		return 0, false
	}

	return id, true
}

// intQuery parses an integer query parameter, using fallback when absent.
// Malformed values respond 400.
func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, key+" must be an integer")

		return 0, false
	}

	return v, true
}

// typesQuery parses the comma-separated types parameter. Absent means all types.
func typesQuery(c *gin.Context) ([]models.RelationType, bool) {
	types, err := models.ParseRelationTypes(c.Query("types"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return nil, false
	}

	return types, true
}

// boolQuery reports whether the query parameter is a true value.
func boolQuery(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))

	return err == nil && v
}
