package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// ShortestPath finds a shortest chain of relations between two persons.
// It returns models.ErrNoPath when they are not connected within the store's hop bound.
func (s *NetworkService) ShortestPath(
	ctx context.Context,
	fromID, toID int64,
	types []models.RelationType,
) (*models.PathResult, error) {
	s.log.WithFields(logrus.Fields{
		"from_id": fromID,
		"to_id":   toID,
		"types":   types,
	}).Debug("network.shortest_path")

	if fromID <= 0 || toID <= 0 {
		return nil, models.ErrInvalidPersonID
	}

	for _, t := range types {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrInvalidRelationType, t)
		}
	}

	if err := s.requireExisting(ctx, []int64{fromID, toID}); err != nil {
		return nil, err
	}

	steps, err := s.store.ShortestPath(ctx, fromID, toID, models.NormalizeRelationTypes(types))
	if err != nil {
		return nil, fmt.Errorf("finding shortest path: %w", err)
	}

	if steps == nil {
		return nil, models.ErrNoPath
	}

	ids := make([]int64, len(steps))
	for i, st := range steps {
		ids[i] = st.PersonID
	}

	meta, err := s.store.GetNodesBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading path nodes: %w", err)
	}

	res := &models.PathResult{
		FromID: fromID,
		ToID:   toID,
		Hops:   len(steps) - 1,
		Nodes:  make([]models.PersonNode, 0, len(steps)),
		Edges:  make([]models.RelationEdge, 0, len(steps)),
	}

	for i, st := range steps {
		n, ok := meta[st.PersonID]
		if !ok {
			n = &models.PersonNode{ID: st.PersonID, Label: models.PlaceholderLabel(st.PersonID)}
		}

		n.Depth = i
		n.IsSeed = st.PersonID == fromID || st.PersonID == toID
		res.Nodes = append(res.Nodes, *n)

		if st.Via != nil {
			e := EnrichEdge(*st.Via)
			e.Depth = i
			res.Edges = append(res.Edges, e)
		}
	}

	return res, nil
}
