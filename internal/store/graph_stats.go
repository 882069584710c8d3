package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// CountEdges counts the edges GetEdgesBatch would return for one relation type.
func (s *RelationStore) CountEdges(
	ctx context.Context,
	personIDs []int64,
	relationType models.RelationType,
	includeReciprocal bool,
) (int, error) {
	spec, err := specFor(relationType)
	if err != nil {
		return 0, err
	}

	if len(personIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("count_"+string(relationType), time.Now())

	chunks := chunkIDs(personIDs, maxInParams)
	split := spec.splitsReverse(len(chunks), includeReciprocal)
	total := 0

	for _, chunk := range chunks {
		// A split count takes the forward rows here and the reverse rows below.
		q, times := spec.countSQL(len(chunk), includeReciprocal && !split)

		var n int
		if err := s.DB.QueryRowContext(ctx, q, idArgs(chunk, times)...).Scan(&n); err != nil {
			return 0, fmt.Errorf("counting %s edges: %w", relationType, err)
		}

		total += n

		if split {
			reverse, err := s.countReverse(ctx, spec, chunk, chunks)
			if err != nil {
				return 0, fmt.Errorf("counting reciprocal %s edges: %w", relationType, err)
			}

			total += reverse
		}
	}

	if spec.limit > 0 {
		total = min(total, spec.limit*len(chunks))
	}

	return total, nil
}

// countReverse counts rows pointing into chunk whose source is not one of the
// requested IDs. Rows from a requested source are counted by its own chunk.
func (s *RelationStore) countReverse(ctx context.Context, spec relationSpec, chunk []int64, chunks [][]int64) (int, error) {
	q, times := spec.reverseSourcesSQL(len(chunk))

	rows, err := s.DB.QueryContext(ctx, q, idArgs(chunk, times)...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0

	for rows.Next() {
		var source int64
		if err := rows.Scan(&source); err != nil {
			return 0, err
		}

		if !inAnyChunk(chunks, source) {
			n++
		}
	}

	return n, rows.Err()
}

// GetEdgeStats counts edges of every relation type for personIDs concurrently.
func (s *RelationStore) GetEdgeStats(ctx context.Context, personIDs []int64, includeReciprocal bool) (*models.EdgeStats, error) {
	ids := slices.Clone(personIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	stats := &models.EdgeStats{PersonIDs: ids}

	g, gctx := errgroup.WithContext(ctx)

	targets := map[models.RelationType]*int{
		models.RelationKinship:     &stats.Kinship,
		models.RelationAssociation: &stats.Association,
		models.RelationOffice:      &stats.Office,
	}

	for t, dst := range targets {
		g.Go(func() error {
			n, err := s.CountEdges(gctx, ids, t, includeReciprocal)
			if err != nil {
				return err
			}

			*dst = n

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collecting edge stats: %w", err)
	}

	stats.Total = stats.Kinship + stats.Association + stats.Office

	return stats, nil
}
