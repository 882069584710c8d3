package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// DefaultMaxNodes caps discovery when no limit is configured.
const DefaultMaxNodes = 5000

// EdgeSource is the store dependency of DiscoveryService.
type EdgeSource interface {
	GetEdgesBatch(ctx context.Context, personIDs []int64, relationTypes []models.RelationType, includeReciprocal bool) ([]models.RelationEdge, error)
}

// DiscoverParams configures one breadth-first discovery.
type DiscoverParams struct {
	Seeds             []int64
	MaxDepth          int
	RelationTypes     []models.RelationType
	IncludeReciprocal bool
}

// Discovery is the raw output of a breadth-first expansion.
type Discovery struct {
	// Depths maps every visited person to the level at which it was first reached.
	Depths map[int64]int
	Edges  []models.RelationEdge
	// Truncated is set when the node cap stopped the expansion early.
	Truncated bool
}

// NodeIDs returns the visited IDs in ascending order.
func (d *Discovery) NodeIDs() []int64 {
	ids := make([]int64, 0, len(d.Depths))
	for id := range d.Depths {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// DiscoveryService expands seed persons level by level through the relation store.
type DiscoveryService struct {
	store    EdgeSource
	log      *logrus.Logger
	maxNodes int
}

// NewDiscoveryService creates a DiscoveryService. maxNodes <= 0 uses DefaultMaxNodes.
func NewDiscoveryService(store EdgeSource, log *logrus.Logger, maxNodes int) *DiscoveryService {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}

	return &DiscoveryService{store: store, log: log, maxNodes: maxNodes}
}

// edgeKey identifies one edge row; occurrence distinguishes identical rows
// returned by the same query.
type edgeKey struct {
	source, target int64
	typ            models.RelationType
	code           int
	occurrence     int
}

// Discover runs breadth-first expansion from p.Seeds. A node is expanded at
// most once, at the depth it was first reached. Every edge is recorded at the
// first depth it appears. Any store error aborts the discovery.
func (s *DiscoveryService) Discover(ctx context.Context, p DiscoverParams, progress models.ProgressFunc) (*Discovery, error) {
	s.log.WithFields(logrus.Fields{
		"seeds":      len(p.Seeds),
		"max_depth":  p.MaxDepth,
		"types":      p.RelationTypes,
		"reciprocal": p.IncludeReciprocal,
	}).Debug("network.discover")

	d := &Discovery{
		Depths: make(map[int64]int, len(p.Seeds)),
		Edges:  make([]models.RelationEdge, 0, 64),
	}

	frontier := make([]int64, 0, len(p.Seeds))
	for _, id := range p.Seeds {
		if _, ok := d.Depths[id]; ok {
			continue
		}

		d.Depths[id] = 0
		frontier = append(frontier, id)
	}

	seen := make(map[edgeKey]struct{})

	for depth := 1; depth <= p.MaxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := s.store.GetEdgesBatch(ctx, frontier, p.RelationTypes, p.IncludeReciprocal)
		if err != nil {
			return nil, fmt.Errorf("discovering depth %d: %w", depth, err)
		}

		next := s.absorb(d, batch, depth, seen)
		if d.Truncated {
			s.log.WithFields(logrus.Fields{
				"depth":     depth,
				"max_nodes": s.maxNodes,
			}).Warn("network discovery hit node cap")
		}

		if progress != nil {
			progress(models.DiscoveryProgress{
				Depth:        depth,
				FrontierSize: len(next),
				Nodes:        len(d.Depths),
				Edges:        len(d.Edges),
			})
		}

		if d.Truncated {
			break
		}

		frontier = next
	}

	return d, nil
}

// absorb records unseen edges at depth and returns the newly visited nodes.
func (s *DiscoveryService) absorb(d *Discovery, batch []models.RelationEdge, depth int, seen map[edgeKey]struct{}) []int64 {
	occurrences := make(map[edgeKey]int)

	var next []int64

	for _, e := range batch {
		base := edgeKey{source: e.Source, target: e.Target, typ: e.Type, code: e.Code}
		key := base
		key.occurrence = occurrences[base]
		occurrences[base]++

		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		e.Depth = depth
		d.Edges = append(d.Edges, e)

		for _, id := range [2]int64{e.Source, e.Target} {
			if _, ok := d.Depths[id]; ok {
				continue
			}

			if len(d.Depths) >= s.maxNodes {
				d.Truncated = true
				continue
			}

			d.Depths[id] = depth
			next = append(next, id)
		}
	}

	return next
}
