// Package domain defines the canonical service interfaces shared across API
// layers (REST, websocket, client). Consumers should depend on these interfaces
// rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// NetworkService defines person network exploration.
type NetworkService interface {
	Explore(ctx context.Context, req models.ExploreRequest) (*models.NetworkResult, error)
	ExploreWithProgress(ctx context.Context, req models.ExploreRequest, progress models.ProgressFunc) (*models.NetworkResult, error)
	PersonNetwork(ctx context.Context, personID int64, depth int, types []models.RelationType, includeReciprocal bool) (*models.NetworkResult, error)
	RecursiveNetwork(ctx context.Context, personID int64, degrees int, opts models.RecursiveOptions) (*models.RecursiveResult, error)
	EdgeStats(ctx context.Context, personIDs []int64, includeReciprocal bool) (*models.EdgeStats, error)
	ShortestPath(ctx context.Context, fromID, toID int64, types []models.RelationType) (*models.PathResult, error)
}

// PersonService defines single-person lookups.
type PersonService interface {
	Person(ctx context.Context, personID int64) (*models.PersonNode, error)
}
