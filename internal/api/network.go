package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/models"
	"github.com/cbdb-network/cbdbnet/internal/service"
)

// defaultRecursiveDegrees applies when the degrees parameter is absent.
const defaultRecursiveDegrees = 2

// NetworkHandler serves network exploration endpoints.
type NetworkHandler struct {
	svc      NetworkService
	warm     Warmer
	maxNodes int
	log      *logrus.Logger
}

// NewNetworkHandler creates a NetworkHandler. warm may be nil, which disables
// the warm endpoint. maxNodes caps the recursive traversal's max_nodes.
func NewNetworkHandler(svc NetworkService, warm Warmer, maxNodes int, log *logrus.Logger) *NetworkHandler {
	return &NetworkHandler{svc: svc, warm: warm, maxNodes: maxNodes, log: log}
}

// Person handles GET /api/v1/network/:id.
func (h *NetworkHandler) Person(c *gin.Context) {
	id, ok := personParam(c, "id")
	if !ok {
		return
	}

	depth, ok := intQuery(c, "depth", models.DefaultDepth)
	if !ok {
		return
	}

	types, ok := typesQuery(c)
	if !ok {
		return
	}

	res, err := h.svc.PersonNetwork(c.Request.Context(), id, depth, types, boolQuery(c, "reciprocal"))
	if err != nil {
		respondServiceError(c, h.log, "exploring person network", err)

		return
	}

	c.JSON(http.StatusOK, res)
}

// Explore handles POST /api/v1/network/explore.
func (h *NetworkHandler) Explore(c *gin.Context) {
	var req models.ExploreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	res, err := h.svc.Explore(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, h.log, "exploring network", err)

		return
	}

	c.JSON(http.StatusOK, res)
}

// Recursive handles GET /api/v1/network/:id/recursive.
func (h *NetworkHandler) Recursive(c *gin.Context) {
	id, ok := personParam(c, "id")
	if !ok {
		return
	}

	degrees, ok := intQuery(c, "degrees", defaultRecursiveDegrees)
	if !ok {
		return
	}

	maxNodes, ok := intQuery(c, "max_nodes", h.maxNodes)
	if !ok {
		return
	}

	if maxNodes <= 0 || (h.maxNodes > 0 && maxNodes > h.maxNodes) {
		maxNodes = h.maxNodes
	}

	types, ok := typesQuery(c)
	if !ok {
		return
	}

	res, err := h.svc.RecursiveNetwork(c.Request.Context(), id, degrees, models.RecursiveOptions{
		RelationTypes:     types,
		IncludeReciprocal: boolQuery(c, "reciprocal"),
		MaxNodes:          maxNodes,
	})
	if err != nil {
		respondServiceError(c, h.log, "recursive network", err)

		return
	}

	c.JSON(http.StatusOK, res)
}

// Stats handles GET /api/v1/network/:id/stats.
func (h *NetworkHandler) Stats(c *gin.Context) {
	id, ok := personParam(c, "id")
	if !ok {
		return
	}

	stats, err := h.svc.EdgeStats(c.Request.Context(), []int64{id}, boolQuery(c, "reciprocal"))
	if err != nil {
		respondServiceError(c, h.log, "edge stats", err)

		return
	}

	c.JSON(http.StatusOK, stats)
}

// Path handles GET /api/v1/path/:from/:to.
func (h *NetworkHandler) Path(c *gin.Context) {
	from, ok := personParam(c, "from")
	if !ok {
		return
	}

	to, ok := personParam(c, "to")
	if !ok {
		return
	}

	types, ok := typesQuery(c)
	if !ok {
		return
	}

	path, err := h.svc.ShortestPath(c.Request.Context(), from, to, types)
	if err != nil {
		respondServiceError(c, h.log, "finding shortest path", err)

		return
	}

	c.JSON(http.StatusOK, path)
}

// Warm handles POST /api/v1/network/warm. The exploration runs in the
// background; the response only reports whether it was queued.
func (h *NetworkHandler) Warm(c *gin.Context) {
	if h.warm == nil {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "cache warming is disabled")

		return
	}

	var req models.ExploreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondServiceError(c, h.log, "validating warm request", err)

		return
	}

	if !h.warm.Enqueue(req) {
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "warm queue is full")

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

var _ Warmer = (*service.WarmWorker)(nil)
