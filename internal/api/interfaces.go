package api

import (
	"github.com/cbdb-network/cbdbnet/internal/domain"
	"github.com/cbdb-network/cbdbnet/internal/models"
)

// NetworkService defines the exploration operations used by NetworkHandler
// and the WebSocket endpoint.
type NetworkService interface {
	domain.NetworkService
}

// PersonService defines person lookups used by PeopleHandler.
type PersonService interface {
	domain.PersonService
}

// Warmer queues explorations for background cache warming.
type Warmer interface {
	Enqueue(req models.ExploreRequest) bool
}
