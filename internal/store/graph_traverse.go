package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// maxRecursiveDegrees caps the recursive traversal depth.
const maxRecursiveDegrees = 4

// recursiveSQL renders the single-query traversal. Arguments: center ID, max degrees.
func recursiveSQL(edgesSQL string, includeReciprocal bool, maxNodes int) string {
	join := "e.source_id = r.node"
	if includeReciprocal {
		join = "(e.source_id = r.node OR e.target_id = r.node)"
	}

	limit := ""
	if maxNodes > 0 {
		limit = fmt.Sprintf(" LIMIT %d", maxNodes)
	}

	return `WITH RECURSIVE
		all_edges(source_id, target_id, edge_type, edge_code, edge_label) AS (
			` + edgesSQL + `
		),
		reach(node, degree) AS (
			SELECT CAST(? AS BIGINT), 0
			UNION
			SELECT CAST(CASE WHEN e.source_id = r.node THEN e.target_id ELSE e.source_id END AS BIGINT), r.degree + 1
			FROM reach r
			JOIN all_edges e ON ` + join + `
			WHERE r.degree < ?
		),
		nodes(node, degree) AS (
			SELECT node, MIN(degree) FROM reach
			GROUP BY node
			ORDER BY MIN(degree), node` + limit + `
		)
		SELECT e.source_id, e.target_id, e.edge_type, e.edge_code, e.edge_label,
			CASE WHEN n1.degree > n2.degree THEN n1.degree ELSE n2.degree END,
			n1.degree, n2.degree
		FROM all_edges e
		JOIN nodes n1 ON n1.node = e.source_id
		JOIN nodes n2 ON n2.node = e.target_id
		ORDER BY 6, e.source_id, e.target_id, e.edge_code`
}

// GetNetworkEdges returns the subgraph within maxDegrees hops of centerID using
// one recursive query. Nodes keep their minimum hop count as Depth; an edge's
// depth is the larger of its endpoints'.
func (s *RelationStore) GetNetworkEdges(
	ctx context.Context,
	centerID int64,
	maxDegrees int,
	opts models.RecursiveOptions,
) (*models.RecursiveResult, error) {
	maxDegrees = min(max(maxDegrees, 0), maxRecursiveDegrees)

	edgesSQL, err := allEdgesSQL(models.NormalizeRelationTypes(opts.RelationTypes))
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	degrees := map[int64]int{centerID: 0}
	edges := make([]models.RelationEdge, 0, 64)

	if err := s.collectRecursive(ctx, recursiveSQL(edgesSQL, opts.IncludeReciprocal, opts.MaxNodes),
		centerID, maxDegrees, degrees, &edges); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(degrees))
	for id := range degrees {
		ids = append(ids, id)
	}

	meta, err := s.GetNodesBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading recursive nodes: %w", err)
	}

	nodes := make([]models.PersonNode, 0, len(ids))
	for _, id := range ids {
		n, ok := meta[id]
		if !ok {
			n = &models.PersonNode{ID: id, Label: models.PlaceholderLabel(id)}
		}

		n.Depth = degrees[id]
		n.IsSeed = id == centerID
		nodes = append(nodes, *n)
	}

	slices.SortFunc(nodes, func(a, b models.PersonNode) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return &models.RecursiveResult{
		CenterID:   centerID,
		MaxDegrees: maxDegrees,
		Nodes:      nodes,
		Edges:      edges,
	}, nil
}

func (s *RelationStore) collectRecursive(
	ctx context.Context,
	q string,
	centerID int64,
	maxDegrees int,
	degrees map[int64]int,
	edges *[]models.RelationEdge,
) error {
	defer observe("recursive", time.Now())

	rows, err := s.DB.QueryContext(ctx, q, centerID, maxDegrees)
	if err != nil {
		return fmt.Errorf("querying recursive network: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e              models.RelationEdge
			edgeType       string
			code           int64
			label          *string
			srcDeg, tgtDeg int
		)

		if err := rows.Scan(&e.Source, &e.Target, &edgeType, &code, &label, &e.Depth, &srcDeg, &tgtDeg); err != nil {
			return fmt.Errorf("scanning recursive edge: %w", err)
		}

		e.Type = models.RelationType(edgeType)
		e.Code = int(code)

		if label != nil {
			e.Label = *label
		}

		degrees[e.Source] = srcDeg
		degrees[e.Target] = tgtDeg
		*edges = append(*edges, e)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating recursive edges: %w", err)
	}

	return nil
}
