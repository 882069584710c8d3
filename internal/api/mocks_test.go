package api_test

import (
	"context"
	"sync"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// mockNetworkService implements api.NetworkService and api.PersonService for testing.
type mockNetworkService struct {
	exploreFn       func(ctx context.Context, req models.ExploreRequest) (*models.NetworkResult, error)
	personNetworkFn func(ctx context.Context, personID int64, depth int, types []models.RelationType, reciprocal bool) (*models.NetworkResult, error)
	recursiveFn     func(ctx context.Context, personID int64, degrees int, opts models.RecursiveOptions) (*models.RecursiveResult, error)
	edgeStatsFn     func(ctx context.Context, personIDs []int64, reciprocal bool) (*models.EdgeStats, error)
	shortestPathFn  func(ctx context.Context, fromID, toID int64, types []models.RelationType) (*models.PathResult, error)
	personFn        func(ctx context.Context, personID int64) (*models.PersonNode, error)
}

func (m *mockNetworkService) Explore(ctx context.Context, req models.ExploreRequest) (*models.NetworkResult, error) {
	return m.exploreFn(ctx, req)
}

func (m *mockNetworkService) ExploreWithProgress(ctx context.Context, req models.ExploreRequest, _ models.ProgressFunc) (*models.NetworkResult, error) {
	return m.exploreFn(ctx, req)
}

func (m *mockNetworkService) PersonNetwork(ctx context.Context, personID int64, depth int, types []models.RelationType, reciprocal bool) (*models.NetworkResult, error) {
	return m.personNetworkFn(ctx, personID, depth, types, reciprocal)
}

func (m *mockNetworkService) RecursiveNetwork(ctx context.Context, personID int64, degrees int, opts models.RecursiveOptions) (*models.RecursiveResult, error) {
	return m.recursiveFn(ctx, personID, degrees, opts)
}

func (m *mockNetworkService) EdgeStats(ctx context.Context, personIDs []int64, reciprocal bool) (*models.EdgeStats, error) {
	return m.edgeStatsFn(ctx, personIDs, reciprocal)
}

func (m *mockNetworkService) ShortestPath(ctx context.Context, fromID, toID int64, types []models.RelationType) (*models.PathResult, error) {
	return m.shortestPathFn(ctx, fromID, toID, types)
}

func (m *mockNetworkService) Person(ctx context.Context, personID int64) (*models.PersonNode, error) {
	return m.personFn(ctx, personID)
}

// mockWarmer implements api.Warmer, recording queued requests.
type mockWarmer struct {
	mu     sync.Mutex
	full   bool
	queued []models.ExploreRequest
}

func (m *mockWarmer) Enqueue(req models.ExploreRequest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.full {
		return false
	}

	m.queued = append(m.queued, req)

	return true
}
