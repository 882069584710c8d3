package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// RelationStore answers edge and node queries for network exploration.
type RelationStore struct {
	Base
}

// NewRelationStore creates a RelationStore with the given shared base.
func NewRelationStore(base Base) *RelationStore {
	return &RelationStore{Base: base}
}

// GetEdgesBatch returns the edges of personIDs for each requested relation type.
// Types are queried independently and concatenated in canonical order; a person
// pair linked by two types yields two edges. Rows without a target are dropped.
func (s *RelationStore) GetEdgesBatch(
	ctx context.Context,
	personIDs []int64,
	relationTypes []models.RelationType,
	includeReciprocal bool,
) ([]models.RelationEdge, error) {
	edges := make([]models.RelationEdge, 0, 32)
	if len(personIDs) == 0 {
		return edges, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	chunks := chunkIDs(personIDs, maxInParams)

	for _, t := range models.NormalizeRelationTypes(relationTypes) {
		spec, err := specFor(t)
		if err != nil {
			return nil, err
		}

		split := spec.splitsReverse(len(chunks), includeReciprocal)

		for _, chunk := range chunks {
			q, times := spec.batchSQL(len(chunk), includeReciprocal)

			batch, err := s.queryEdges(ctx, "edges_"+string(t), q, idArgs(chunk, times)...)
			if err != nil {
				return nil, fmt.Errorf("querying %s edges: %w", t, err)
			}

			if spec.limit > 0 && len(batch) >= spec.limit {
				s.Log.WithFields(logrus.Fields{
					"relation_type": t,
					"persons":       len(chunk),
					"limit":         spec.limit,
				}).Warn("edge batch truncated")
				models.AddWarning(ctx, fmt.Sprintf("%s relations truncated at %d rows per batch", t, spec.limit))
			}

			if split {
				batch = ownedByChunk(batch, chunk, chunks)
			}

			edges = append(edges, batch...)
		}
	}

	return edges, nil
}

// ownedByChunk drops reverse rows whose source belongs to another chunk of
// the same request. That chunk returns the row through its source column.
func ownedByChunk(batch []models.RelationEdge, chunk []int64, chunks [][]int64) []models.RelationEdge {
	kept := batch[:0]

	for _, e := range batch {
		if containsID(chunk, e.Source) || !inAnyChunk(chunks, e.Source) {
			kept = append(kept, e)
		}
	}

	return kept
}

// queryEdges runs an edge projection query and scans its rows.
func (s *RelationStore) queryEdges(ctx context.Context, name, q string, args ...any) ([]models.RelationEdge, error) {
	defer observe(name, time.Now())

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]models.RelationEdge, 0, 16)

	for rows.Next() {
		e, err := scanEdge(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}

		if e == nil {
			continue
		}

		edges = append(edges, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}

	return edges, nil
}

// scanEdge scans source_id, target_id, edge_type, edge_code, edge_label.
// It returns nil for rows whose target is missing.
func scanEdge(scan func(dest ...any) error) (*models.RelationEdge, error) {
	var (
		source, target sql.NullInt64
		edgeType       string
		code           sql.NullInt64
		label          sql.NullString
	)

	if err := scan(&source, &target, &edgeType, &code, &label); err != nil {
		return nil, err
	}

	if !source.Valid || !target.Valid || target.Int64 <= 0 {
		return nil, nil
	}

	return &models.RelationEdge{
		Source: source.Int64,
		Target: target.Int64,
		Type:   models.RelationType(edgeType),
		Code:   int(code.Int64),
		Label:  label.String,
	}, nil
}

// GetNodesBatch returns display metadata for the given person IDs.
// IDs missing from BIOG_MAIN are absent from the result.
func (s *RelationStore) GetNodesBatch(ctx context.Context, nodeIDs []int64) (map[int64]*models.PersonNode, error) {
	nodes := make(map[int64]*models.PersonNode, len(nodeIDs))
	if len(nodeIDs) == 0 {
		return nodes, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	for _, chunk := range chunkIDs(nodeIDs, maxInParams) {
		if err := s.fetchNodes(ctx, chunk, nodes); err != nil {
			return nil, err
		}
	}

	return nodes, nil
}

func (s *RelationStore) fetchNodes(ctx context.Context, ids []int64, into map[int64]*models.PersonNode) error {
	defer observe("nodes", time.Now())

	q := `SELECT b.c_personid, b.c_name, b.c_name_chn, b.c_dy,
			COALESCE(NULLIF(d.c_dynasty_chn, ''), d.c_dynasty),
			b.c_birthyear, b.c_deathyear
		FROM BIOG_MAIN b
		LEFT JOIN DYNASTIES d ON d.c_dy = b.c_dy
		WHERE b.c_personid IN (` + placeholders(len(ids)) + `)`

	rows, err := s.DB.QueryContext(ctx, q, idArgs(ids, 1)...)
	if err != nil {
		return fmt.Errorf("querying person nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanPerson(rows.Scan)
		if err != nil {
			return fmt.Errorf("scanning person node: %w", err)
		}

		into[n.ID] = n
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating person nodes: %w", err)
	}

	return nil
}

func scanPerson(scan func(dest ...any) error) (*models.PersonNode, error) {
	var (
		id                       int64
		name, nameChn, dynasty   sql.NullString
		dy, birthYear, deathYear sql.NullInt64
	)

	if err := scan(&id, &name, &nameChn, &dy, &dynasty, &birthYear, &deathYear); err != nil {
		return nil, err
	}

	return &models.PersonNode{
		ID:          id,
		Label:       models.PersonLabel(id, nameChn.String, name.String),
		Name:        name.String,
		NameChn:     nameChn.String,
		DynastyCode: optionalInt(dy, false),
		Dynasty:     dynasty.String,
		BirthYear:   optionalInt(birthYear, true),
		DeathYear:   optionalInt(deathYear, true),
	}, nil
}

// optionalInt converts a nullable column; CBDB stores unknown years as 0.
func optionalInt(v sql.NullInt64, zeroIsNull bool) *int {
	if !v.Valid || (zeroIsNull && v.Int64 == 0) {
		return nil
	}

	i := int(v.Int64)

	return &i
}

// PersonExists reports whether id is present in BIOG_MAIN.
func (s *RelationStore) PersonExists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("person_exists", time.Now())

	var exists bool
	if err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM BIOG_MAIN WHERE c_personid = ?)`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking person existence: %w", err)
	}

	return exists, nil
}
