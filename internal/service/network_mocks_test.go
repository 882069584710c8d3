package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// mockRelationStore records calls and returns configured responses.
type mockRelationStore struct {
	mu    sync.Mutex
	calls []string
	// batches records the frontier passed to each GetEdgesBatch call.
	batches [][]int64

	getEdgesBatch   func(ctx context.Context, ids []int64, types []models.RelationType, reciprocal bool) ([]models.RelationEdge, error)
	getNodesBatch   func(ctx context.Context, ids []int64) (map[int64]*models.PersonNode, error)
	personExists    func(ctx context.Context, id int64) (bool, error)
	getEdgeStats    func(ctx context.Context, ids []int64, reciprocal bool) (*models.EdgeStats, error)
	getNetworkEdges func(ctx context.Context, center int64, degrees int, opts models.RecursiveOptions) (*models.RecursiveResult, error)
	shortestPath    func(ctx context.Context, from, to int64, types []models.RelationType) ([]models.PathStep, error)
}

func (m *mockRelationStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockRelationStore) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}

	return n
}

func (m *mockRelationStore) GetEdgesBatch(ctx context.Context, ids []int64, types []models.RelationType, reciprocal bool) ([]models.RelationEdge, error) {
	m.record("GetEdgesBatch")
	m.mu.Lock()
	m.batches = append(m.batches, slices.Clone(ids))
	m.mu.Unlock()

	return m.getEdgesBatch(ctx, ids, types, reciprocal)
}

func (m *mockRelationStore) GetNodesBatch(ctx context.Context, ids []int64) (map[int64]*models.PersonNode, error) {
	m.record("GetNodesBatch")
	return m.getNodesBatch(ctx, ids)
}

func (m *mockRelationStore) PersonExists(ctx context.Context, id int64) (bool, error) {
	m.record("PersonExists")
	return m.personExists(ctx, id)
}

func (m *mockRelationStore) GetEdgeStats(ctx context.Context, ids []int64, reciprocal bool) (*models.EdgeStats, error) {
	m.record("GetEdgeStats")
	return m.getEdgeStats(ctx, ids, reciprocal)
}

func (m *mockRelationStore) GetNetworkEdges(ctx context.Context, center int64, degrees int, opts models.RecursiveOptions) (*models.RecursiveResult, error) {
	m.record("GetNetworkEdges")
	return m.getNetworkEdges(ctx, center, degrees, opts)
}

func (m *mockRelationStore) ShortestPath(ctx context.Context, from, to int64, types []models.RelationType) ([]models.PathStep, error) {
	m.record("ShortestPath")
	return m.shortestPath(ctx, from, to, types)
}

// newMemStore returns a mock backed by an in-memory edge table. Persons named
// in persons exist; every edge endpoint is assumed to be a person too.
func newMemStore(persons []int64, edges []models.RelationEdge) *mockRelationStore {
	exists := make(map[int64]bool)
	for _, id := range persons {
		exists[id] = true
	}

	matches := func(ids []int64, types []models.RelationType, reciprocal bool) []models.RelationEdge {
		want := models.NormalizeRelationTypes(types)
		out := make([]models.RelationEdge, 0)

		for _, t := range want {
			for _, e := range edges {
				if e.Type != t {
					continue
				}

				if slices.Contains(ids, e.Source) || (reciprocal && slices.Contains(ids, e.Target)) {
					out = append(out, e)
				}
			}
		}

		return out
	}

	return &mockRelationStore{
		getEdgesBatch: func(_ context.Context, ids []int64, types []models.RelationType, reciprocal bool) ([]models.RelationEdge, error) {
			return matches(ids, types, reciprocal), nil
		},
		getNodesBatch: func(_ context.Context, ids []int64) (map[int64]*models.PersonNode, error) {
			out := make(map[int64]*models.PersonNode)
			for _, id := range ids {
				if exists[id] {
					out[id] = &models.PersonNode{ID: id, Label: fmt.Sprintf("P%d", id)}
				}
			}

			return out, nil
		},
		personExists: func(_ context.Context, id int64) (bool, error) {
			return exists[id], nil
		},
		getEdgeStats: func(_ context.Context, ids []int64, reciprocal bool) (*models.EdgeStats, error) {
			stats := &models.EdgeStats{PersonIDs: ids}
			for _, e := range matches(ids, nil, reciprocal) {
				switch e.Type {
				case models.RelationKinship:
					stats.Kinship++
				case models.RelationAssociation:
					stats.Association++
				case models.RelationOffice:
					stats.Office++
				}
			}

			stats.Total = stats.Kinship + stats.Association + stats.Office

			return stats, nil
		},
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func kin(s, t int64, code int) models.RelationEdge {
	return models.RelationEdge{Source: s, Target: t, Type: models.RelationKinship, Code: code}
}

func assoc(s, t int64, code int) models.RelationEdge {
	return models.RelationEdge{Source: s, Target: t, Type: models.RelationAssociation, Code: code}
}
