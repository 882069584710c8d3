package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// BFS safety caps for path search.
const (
	maxPathHops       = 6
	maxVisitedNodes   = 20000
	maxFrontierPerHop = 2000
)

// ShortestPath finds a shortest undirected path between two persons using
// level-by-level BFS over GetEdgesBatch. It returns nil when no path exists
// within maxPathHops.
func (s *RelationStore) ShortestPath( //nolint:gocognit // BFS loop with parent tracking is inherently multi-step.
	ctx context.Context,
	fromID, toID int64,
	relationTypes []models.RelationType,
) ([]models.PathStep, error) {
	if fromID == toID {
		return []models.PathStep{{PersonID: fromID}}, nil
	}

	type link struct {
		parent int64
		edge   models.RelationEdge
	}

	visited := map[int64]bool{fromID: true}
	parent := map[int64]link{}
	frontier := []int64{fromID}
	found := false

	for hop := 0; hop < maxPathHops && !found && len(frontier) > 0; hop++ {
		if len(visited) >= maxVisitedNodes {
			break
		}

		edges, err := s.GetEdgesBatch(ctx, frontier, relationTypes, true)
		if err != nil {
			return nil, fmt.Errorf("expanding path frontier at hop %d: %w", hop, err)
		}

		var next []int64

		for _, e := range edges {
			for _, pair := range [2][2]int64{{e.Source, e.Target}, {e.Target, e.Source}} {
				from, to := pair[0], pair[1]
				if visited[from] && !visited[to] {
					visited[to] = true
					parent[to] = link{parent: from, edge: e}
					next = append(next, to)

					if to == toID {
						found = true
					}
				}
			}
		}

		if len(next) > maxFrontierPerHop {
			slices.Sort(next)
			next = next[:maxFrontierPerHop]
		}

		frontier = next
	}

	if !found {
		return nil, nil
	}

	trail := []models.PathStep{}
	for current := toID; current != fromID; {
		l, ok := parent[current]
		if !ok {
			break
		}

		edge := l.edge
		trail = append(trail, models.PathStep{PersonID: current, Via: &edge})
		current = l.parent
	}

	trail = append(trail, models.PathStep{PersonID: fromID})
	slices.Reverse(trail)

	return trail, nil
}
