// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/analysis"
	"github.com/cbdb-network/cbdbnet/internal/domain"
	"github.com/cbdb-network/cbdbnet/internal/metrics"
	"github.com/cbdb-network/cbdbnet/internal/models"
)

// MaxRecursiveDegrees bounds RecursiveNetwork.
const MaxRecursiveDegrees = 4

// DefaultMaxSeedEdges is the seed edge count above which depth is clamped to 1.
const DefaultMaxSeedEdges = 2000

// RelationStore is the data-access interface NetworkService depends on.
type RelationStore interface {
	EdgeSource
	GetNodesBatch(ctx context.Context, nodeIDs []int64) (map[int64]*models.PersonNode, error)
	PersonExists(ctx context.Context, id int64) (bool, error)
	GetEdgeStats(ctx context.Context, personIDs []int64, includeReciprocal bool) (*models.EdgeStats, error)
	GetNetworkEdges(ctx context.Context, centerID int64, maxDegrees int, opts models.RecursiveOptions) (*models.RecursiveResult, error)
	ShortestPath(ctx context.Context, fromID, toID int64, relationTypes []models.RelationType) ([]models.PathStep, error)
}

// Compile-time checks.
var (
	_ domain.NetworkService = (*NetworkService)(nil)
	_ domain.PersonService  = (*NetworkService)(nil)
)

// NetworkConfig holds the orchestrator's limits.
type NetworkConfig struct {
	MaxDepth     int
	MaxNodes     int
	MaxSeedEdges int
	CacheSize    int
	CacheTTL     time.Duration
}

// NetworkService orchestrates discovery, enrichment and analysis of person networks.
type NetworkService struct {
	store     RelationStore
	discovery *DiscoveryService
	calc      *analysis.Calculator
	bridges   *BridgeAnalyzer
	cache     *resultCache
	cfg       NetworkConfig
	log       *logrus.Logger
}

// NewNetworkService creates a NetworkService. Zero limits fall back to defaults.
func NewNetworkService(store RelationStore, cfg NetworkConfig, log *logrus.Logger) *NetworkService {
	if cfg.MaxDepth <= 0 || cfg.MaxDepth > models.MaxRequestDepth {
		cfg.MaxDepth = models.MaxRequestDepth
	}

	if cfg.MaxSeedEdges <= 0 {
		cfg.MaxSeedEdges = DefaultMaxSeedEdges
	}

	calc := analysis.NewCalculator()

	return &NetworkService{
		store:     store,
		discovery: NewDiscoveryService(store, log, cfg.MaxNodes),
		calc:      calc,
		bridges:   NewBridgeAnalyzer(calc),
		cache:     newResultCache(cfg.CacheSize, cfg.CacheTTL),
		cfg:       cfg,
		log:       log,
	}
}

// CachedResults reports how many results are currently cached.
func (s *NetworkService) CachedResults() int {
	return s.cache.len()
}

// Explore builds the network around the request's seed persons.
func (s *NetworkService) Explore(ctx context.Context, req models.ExploreRequest) (*models.NetworkResult, error) {
	return s.ExploreWithProgress(ctx, req, nil)
}

// ExploreWithProgress is Explore with per-depth progress callbacks. Progress is
// not reported when the result is served from cache.
func (s *NetworkService) ExploreWithProgress(
	ctx context.Context,
	req models.ExploreRequest,
	progress models.ProgressFunc,
) (*models.NetworkResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	depth := req.EffectiveDepth()
	if depth > s.cfg.MaxDepth {
		return nil, models.ErrFieldOutOfRange("depth", 0, s.cfg.MaxDepth)
	}

	seeds := req.Seeds()
	types := models.NormalizeRelationTypes(req.RelationTypes)

	s.log.WithFields(logrus.Fields{
		"seeds":      seeds,
		"depth":      depth,
		"types":      types,
		"reciprocal": req.IncludeReciprocal,
		"radius":     req.EffectiveRadius(),
	}).Debug("network.explore")

	key := cacheKey(seeds, depth, types, req)
	if res, ok := s.cache.get(key); ok {
		return res, nil
	}

	compute := func(ctx context.Context) (*models.NetworkResult, error) {
		res, err := s.explore(ctx, req, seeds, depth, types, progress)
		if err != nil {
			return nil, err
		}

		s.cache.add(key, res)

		return res, nil
	}

	if progress != nil {
		return compute(ctx)
	}

	return s.cache.do(ctx, key, compute)
}

func (s *NetworkService) explore(
	ctx context.Context,
	req models.ExploreRequest,
	seeds []int64,
	depth int,
	types []models.RelationType,
	progress models.ProgressFunc,
) (*models.NetworkResult, error) {
	start := time.Now()
	defer func() {
		metrics.NetworkExploreDuration.WithLabelValues("bfs").Observe(time.Since(start).Seconds())
	}()

	if err := s.requireExisting(ctx, seeds); err != nil {
		return nil, err
	}

	ctx, notices := models.WithWarnings(ctx)

	var warnings []string

	stats, err := s.store.GetEdgeStats(ctx, seeds, req.IncludeReciprocal)
	if err != nil {
		return nil, fmt.Errorf("loading seed edge stats: %w", err)
	}

	switch total := stats.TotalFor(types); {
	case total == 0:
		depth = 0
	case total > s.cfg.MaxSeedEdges && depth > 1:
		warnings = append(warnings, fmt.Sprintf(
			"seeds have %d relations (limit %d); depth reduced from %d to 1", total, s.cfg.MaxSeedEdges, depth))
		s.log.WithFields(logrus.Fields{
			"seed_edges": total,
			"depth":      depth,
		}).Warn("clamping exploration depth")

		depth = 1
	}

	disc, err := s.discovery.Discover(ctx, DiscoverParams{
		Seeds:             seeds,
		MaxDepth:          depth,
		RelationTypes:     types,
		IncludeReciprocal: req.IncludeReciprocal,
	}, progress)
	if err != nil {
		return nil, err
	}

	if disc.Truncated {
		warnings = append(warnings, fmt.Sprintf("network truncated at %d persons", len(disc.Depths)))
	}

	warnings = append(warnings, notices.List()...)

	graph, err := s.assemble(ctx, disc, seeds)
	if err != nil {
		return nil, err
	}

	res := s.analyze(graph, seeds, req)
	res.Warnings = warnings

	metrics.NetworkNodes.Observe(float64(len(res.Nodes)))

	return res, nil
}

// requireExisting fails with ErrPersonNotFound for the first unknown seed.
func (s *NetworkService) requireExisting(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		ok, err := s.store.PersonExists(ctx, id)
		if err != nil {
			return fmt.Errorf("checking person %d: %w", id, err)
		}

		if !ok {
			return models.PersonNotFoundError(id)
		}
	}

	return nil
}

// assemble loads node metadata and builds the graph; edges are enriched.
func (s *NetworkService) assemble(ctx context.Context, disc *Discovery, seeds []int64) (*models.NetworkGraph, error) {
	meta, err := s.store.GetNodesBatch(ctx, disc.NodeIDs())
	if err != nil {
		return nil, fmt.Errorf("loading person nodes: %w", err)
	}

	seedSet := make(map[int64]bool, len(seeds))
	for _, id := range seeds {
		seedSet[id] = true
	}

	graph := models.NewNetworkGraph()

	for id, d := range disc.Depths {
		n, ok := meta[id]
		if !ok {
			n = &models.PersonNode{ID: id, Label: models.PlaceholderLabel(id)}
		}

		n.Depth = d
		n.IsSeed = seedSet[id]
		graph.Nodes[id] = n
	}

	graph.Edges = EnrichEdges(disc.Edges)
	graph.FilterEdges()

	return graph, nil
}

// analyze computes metrics, bridges and optional centrality for graph.
func (s *NetworkService) analyze(graph *models.NetworkGraph, seeds []int64, req models.ExploreRequest) *models.NetworkResult {
	ids := graph.NodeIDs()
	bridges := s.bridges.FindBridgeNodes(graph, seeds, req.EffectiveRadius())

	res := &models.NetworkResult{
		Nodes:       graph.SortedNodes(),
		Edges:       graph.Edges,
		Metrics:     s.networkMetrics(ids, graph.Edges, seeds),
		BridgeNodes: bridges,
	}

	res.Metrics.BridgeNodeCount = len(bridges)

	if req.ExactBridges {
		res.CutVertices = ArticulationPoints(graph)
	}

	if req.IncludeCentrality {
		res.Centrality = s.calc.Centrality(ids, graph.Edges, req.CentralityFor)
	}

	return res
}

// networkMetrics fills every metric except BridgeNodeCount. DirectConnections
// counts edges joining two distinct seeds.
func (s *NetworkService) networkMetrics(ids []int64, edges []models.RelationEdge, seeds []int64) models.NetworkMetrics {
	summary := s.calc.Summary(ids, edges)

	seedSet := make(map[int64]bool, len(seeds))
	for _, id := range seeds {
		seedSet[id] = true
	}

	direct := 0
	for _, e := range edges {
		if seedSet[e.Source] && seedSet[e.Target] && e.Source != e.Target {
			direct++
		}
	}

	query := 0
	for _, id := range ids {
		if seedSet[id] {
			query++
		}
	}

	return models.NetworkMetrics{
		TotalPersons:          len(ids),
		QueryPersons:          query,
		DiscoveredPersons:     len(ids) - query,
		EdgeCount:             len(edges),
		DirectConnections:     direct,
		Density:               summary.Density,
		AveragePathLength:     summary.AveragePathLength,
		ClusteringCoefficient: summary.ClusteringCoefficient,
		Components:            summary.Components,
		Diameter:              summary.Diameter,
	}
}

// PersonNetwork explores the network of a single person.
func (s *NetworkService) PersonNetwork(
	ctx context.Context,
	personID int64,
	depth int,
	types []models.RelationType,
	includeReciprocal bool,
) (*models.NetworkResult, error) {
	return s.Explore(ctx, models.ExploreRequest{
		PersonIDs:         []int64{personID},
		Depth:             &depth,
		RelationTypes:     types,
		IncludeReciprocal: includeReciprocal,
	})
}

// RecursiveNetwork returns the network within degrees hops of personID using
// the single-query recursive traversal.
func (s *NetworkService) RecursiveNetwork(
	ctx context.Context,
	personID int64,
	degrees int,
	opts models.RecursiveOptions,
) (*models.RecursiveResult, error) {
	s.log.WithFields(logrus.Fields{
		"person_id":  personID,
		"degrees":    degrees,
		"max_nodes":  opts.MaxNodes,
		"reciprocal": opts.IncludeReciprocal,
	}).Debug("network.recursive")

	if personID <= 0 {
		return nil, models.ErrInvalidPersonID
	}

	if degrees < 0 || degrees > MaxRecursiveDegrees {
		return nil, models.ErrFieldOutOfRange("degrees", 0, MaxRecursiveDegrees)
	}

	for _, t := range opts.RelationTypes {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrInvalidRelationType, t)
		}
	}

	if err := s.requireExisting(ctx, []int64{personID}); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.NetworkExploreDuration.WithLabelValues("recursive").Observe(time.Since(start).Seconds())
	}()

	res, err := s.store.GetNetworkEdges(ctx, personID, degrees, opts)
	if err != nil {
		return nil, fmt.Errorf("recursive network: %w", err)
	}

	res.Edges = EnrichEdges(res.Edges)

	ids := make([]int64, len(res.Nodes))
	for i, n := range res.Nodes {
		ids[i] = n.ID
	}

	res.Metrics = s.networkMetrics(ids, res.Edges, []int64{personID})

	metrics.NetworkNodes.Observe(float64(len(res.Nodes)))

	return res, nil
}

// EdgeStats returns relation counts for the given persons.
func (s *NetworkService) EdgeStats(ctx context.Context, personIDs []int64, includeReciprocal bool) (*models.EdgeStats, error) {
	s.log.WithFields(logrus.Fields{
		"person_ids": personIDs,
		"reciprocal": includeReciprocal,
	}).Debug("network.edge_stats")

	if len(personIDs) == 0 {
		return nil, models.ErrNoSeeds
	}

	if len(personIDs) > models.MaxSeeds {
		return nil, fmt.Errorf("%w: at most %d", models.ErrTooManySeeds, models.MaxSeeds)
	}

	for _, id := range personIDs {
		if id <= 0 {
			return nil, models.ErrInvalidPersonID
		}
	}

	return s.store.GetEdgeStats(ctx, personIDs, includeReciprocal)
}

// Person returns display metadata for one person.
func (s *NetworkService) Person(ctx context.Context, personID int64) (*models.PersonNode, error) {
	s.log.WithField("person_id", personID).Debug("network.person")

	if personID <= 0 {
		return nil, models.ErrInvalidPersonID
	}

	nodes, err := s.store.GetNodesBatch(ctx, []int64{personID})
	if err != nil {
		return nil, fmt.Errorf("loading person: %w", err)
	}

	n, ok := nodes[personID]
	if !ok {
		return nil, models.PersonNotFoundError(personID)
	}

	return n, nil
}
