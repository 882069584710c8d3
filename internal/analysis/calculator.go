package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// DefaultPathSampleLimit is the number of BFS sources used for path metrics
// on large graphs.
const DefaultPathSampleLimit = 2000

const (
	eigenMaxIter   = 100
	eigenTolerance = 1e-6
)

// Summary holds whole-graph structural metrics.
type Summary struct {
	Density               float64
	AveragePathLength     float64
	ClusteringCoefficient float64
	Components            int
	Diameter              int
}

// Calculator computes network metrics.
type Calculator struct {
	// PathSampleLimit bounds the BFS sources for average path length and
	// diameter. Graphs above it are measured from the lowest IDs only.
	// Zero means DefaultPathSampleLimit; negative means no limit.
	PathSampleLimit int
}

// NewCalculator returns a Calculator with default limits.
func NewCalculator() *Calculator {
	return &Calculator{PathSampleLimit: DefaultPathSampleLimit}
}

// Density is e / (n(n-1)/2), or 0 when n <= 1. It is not clamped, so
// multigraph edge counts may exceed 1.
func (c *Calculator) Density(n, e int) float64 {
	if n <= 1 {
		return 0
	}

	return float64(e) / (float64(n) * float64(n-1) / 2)
}

// Summary computes density, path length, clustering, component count and diameter.
// Density uses the raw edge count; the other metrics use collapsed connections.
func (c *Calculator) Summary(nodeIDs []int64, edges []models.RelationEdge) Summary {
	g := build(nodeIDs, edges)
	n := g.Nodes().Len()

	s := Summary{Density: c.Density(n, len(edges))}
	if n == 0 {
		return s
	}

	s.Components = len(components(g))
	s.ClusteringCoefficient = averageClustering(g)
	s.AveragePathLength, s.Diameter = c.pathMetrics(g)

	return s
}

func (c *Calculator) pathMetrics(g *simple.UndirectedGraph) (float64, int) {
	if g.Edges().Len() == 0 {
		return 0, 0
	}

	sources := sortedIDs(g)

	limit := c.PathSampleLimit
	if limit == 0 {
		limit = DefaultPathSampleLimit
	}

	if limit > 0 && len(sources) > limit {
		sources = sources[:limit]
	}

	var (
		total, pairs int
		diameter     int
	)

	for _, src := range sources {
		for _, d := range hopDistances(g, src) {
			total += d
			pairs++
			diameter = max(diameter, d)
		}
	}

	if pairs == 0 {
		return 0, 0
	}

	return float64(total) / float64(pairs), diameter
}

// averageClustering is the mean local clustering coefficient; nodes of degree
// below 2 contribute 0.
func averageClustering(g *simple.UndirectedGraph) float64 {
	ids := sortedIDs(g)
	if len(ids) == 0 {
		return 0
	}

	var sum float64

	for _, id := range ids {
		sum += localClustering(g, id)
	}

	return sum / float64(len(ids))
}

func localClustering(g *simple.UndirectedGraph, id int64) float64 {
	neighbors := g.From(id)
	k := neighbors.Len()

	if k < 2 {
		return 0
	}

	ids := make([]int64, 0, k)
	for neighbors.Next() {
		ids = append(ids, neighbors.Node().ID())
	}

	links := 0

	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if g.HasEdgeBetween(ids[i], ids[j]) {
				links++
			}
		}
	}

	return 2 * float64(links) / float64(k*(k-1))
}

// ComponentLabels maps every node to the index of its connected component.
// Components are numbered in order of their smallest member ID.
func (c *Calculator) ComponentLabels(nodeIDs []int64, edges []models.RelationEdge) map[int64]int {
	g := build(nodeIDs, edges)
	labels := make(map[int64]int, g.Nodes().Len())

	for i, comp := range components(g) {
		for _, id := range comp {
			labels[id] = i
		}
	}

	return labels
}

// Centrality scores every ID in subset against the full graph. When subset is
// empty all nodes are scored. IDs not in the graph map to the zero value.
// An edgeless graph yields an empty map.
func (c *Calculator) Centrality(nodeIDs []int64, edges []models.RelationEdge, subset []int64) map[int64]models.Centrality {
	g := build(nodeIDs, edges)
	out := make(map[int64]models.Centrality)

	if g.Edges().Len() == 0 {
		return out
	}

	if len(subset) == 0 {
		subset = sortedIDs(g)
	}

	n := g.Nodes().Len()
	betweenness := network.Betweenness(g)
	eigen := eigenvector(g)

	// Undirected pairs are counted in both directions, matching the
	// (n-1)(n-2) normalization.
	bScale := 0.0
	if n > 2 {
		bScale = 1 / float64((n-1)*(n-2))
	}

	for _, id := range subset {
		if g.Node(id) == nil {
			out[id] = models.Centrality{}
			continue
		}

		out[id] = models.Centrality{
			Betweenness: betweenness[id] * bScale,
			Closeness:   closeness(g, id, n),
			Degree:      float64(degree(g, id)) / float64(n-1),
			Eigenvector: eigen[id],
		}
	}

	return out
}

// closeness uses the Wasserman-Faust form so disconnected graphs score
// each node relative to the part of the graph it can reach.
func closeness(g *simple.UndirectedGraph, id int64, n int) float64 {
	dist := hopDistances(g, id)
	reach := len(dist)

	if reach == 0 || n <= 1 {
		return 0
	}

	sum := 0
	for _, d := range dist {
		sum += d
	}

	r := float64(reach)

	return (r / float64(sum)) * (r / float64(n-1))
}

// eigenvector runs power iteration on A+I and returns L2-normalized scores.
func eigenvector(g *simple.UndirectedGraph) map[int64]float64 {
	ids := sortedIDs(g)
	index := make(map[int64]int, len(ids))

	for i, id := range ids {
		index[id] = i
	}

	adj := make([][]int, len(ids))
	for i, id := range ids {
		nodes := g.From(id)
		for nodes.Next() {
			adj[i] = append(adj[i], index[nodes.Node().ID()])
		}
	}

	x := make([]float64, len(ids))
	for i := range x {
		x[i] = 1 / float64(len(ids))
	}

	next := make([]float64, len(ids))
	tol := float64(len(ids)) * eigenTolerance

	for range eigenMaxIter {
		copy(next, x)

		for i, nbrs := range adj {
			for _, j := range nbrs {
				next[i] += x[j]
			}
		}

		norm := floats.Norm(next, 2)
		if norm == 0 {
			break
		}

		floats.Scale(1/norm, next)

		diff := floats.Distance(next, x, 1)
		x, next = next, x

		if diff < tol {
			break
		}
	}

	out := make(map[int64]float64, len(ids))
	for i, id := range ids {
		out[id] = math.Abs(x[i])
	}

	return out
}
