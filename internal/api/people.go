package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PeopleHandler serves person lookups.
type PeopleHandler struct {
	svc PersonService
	log *logrus.Logger
}

// NewPeopleHandler creates a PeopleHandler.
func NewPeopleHandler(svc PersonService, log *logrus.Logger) *PeopleHandler {
	return &PeopleHandler{svc: svc, log: log}
}

// Get handles GET /api/v1/people/:id.
func (h *PeopleHandler) Get(c *gin.Context) {
	id, ok := personParam(c, "id")
	if !ok {
		return
	}

	person, err := h.svc.Person(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, "getting person", err)

		return
	}

	c.JSON(http.StatusOK, person)
}
