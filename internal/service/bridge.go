package service

import (
	"cmp"
	"slices"

	"github.com/cbdb-network/cbdbnet/internal/analysis"
	"github.com/cbdb-network/cbdbnet/internal/models"
)

// BridgeAnalyzer finds persons that link the neighborhoods of several seeds.
type BridgeAnalyzer struct {
	calc *analysis.Calculator
}

// NewBridgeAnalyzer creates a BridgeAnalyzer.
func NewBridgeAnalyzer(calc *analysis.Calculator) *BridgeAnalyzer {
	return &BridgeAnalyzer{calc: calc}
}

// adjacency builds sorted undirected neighbor lists, dropping self-relations
// and parallel relations.
func adjacency(g *models.NetworkGraph) map[int64][]int64 {
	adj := make(map[int64][]int64, len(g.Nodes))
	for id := range g.Nodes {
		adj[id] = nil
	}

	for _, e := range g.Edges {
		if e.Source == e.Target {
			continue
		}

		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	for id, nbrs := range adj {
		slices.Sort(nbrs)
		adj[id] = slices.Compact(nbrs)
	}

	return adj
}

// FindBridgeNodes returns the non-seed persons lying between at least two
// distinct seeds. Each seed explores at most radius hops (radius <= 0 means
// unbounded) and never passes through another seed. A node reached from two
// seeds qualifies only when those seeds arrive through different neighbors,
// so leaves hanging off a bridge are not bridges themselves. ClusterIDs are
// the component labels of the bridge's seeds once all bridges are removed.
// Results are ordered by number of connected seeds, descending, then ID.
func (a *BridgeAnalyzer) FindBridgeNodes(g *models.NetworkGraph, seeds []int64, radius int) []models.BridgeNode {
	seedSet := make(map[int64]bool, len(seeds))
	for _, s := range seeds {
		if _, ok := g.Nodes[s]; ok {
			seedSet[s] = true
		}
	}

	result := make([]models.BridgeNode, 0)
	if len(seedSet) < 2 {
		return result
	}

	adj := adjacency(g)

	orderedSeeds := make([]int64, 0, len(seedSet))
	for s := range seedSet {
		orderedSeeds = append(orderedSeeds, s)
	}

	slices.Sort(orderedSeeds)

	// arrivals[v][i] holds the neighbors through which orderedSeeds[i] first reaches v.
	arrivals := make(map[int64]map[int64][]int64)

	for _, s := range orderedSeeds {
		for v, via := range reachWithin(adj, s, radius, seedSet) {
			if arrivals[v] == nil {
				arrivals[v] = make(map[int64][]int64)
			}

			arrivals[v][s] = via
		}
	}

	bridges := make(map[int64][]int64)
	for v, bySeed := range arrivals {
		if connected, ok := linksSeeds(bySeed); ok {
			bridges[v] = connected
		}
	}

	if len(bridges) == 0 {
		return result
	}

	removed := make(map[int64]bool, len(bridges))
	for v := range bridges {
		removed[v] = true
	}

	labels := a.labelsWithout(g, removed)

	for v, connected := range bridges {
		clusters := make([]int, 0, len(connected))
		for _, s := range connected {
			clusters = append(clusters, labels[s])
		}

		slices.Sort(clusters)

		label := models.PlaceholderLabel(v)
		if n := g.Nodes[v]; n != nil && n.Label != "" {
			label = n.Label
		}

		result = append(result, models.BridgeNode{
			PersonID:       v,
			Label:          label,
			ConnectedSeeds: connected,
			ClusterIDs:     slices.Compact(clusters),
		})
	}

	slices.SortFunc(result, func(x, y models.BridgeNode) int {
		if c := cmp.Compare(len(y.ConnectedSeeds), len(x.ConnectedSeeds)); c != 0 {
			return c
		}

		return cmp.Compare(x.PersonID, y.PersonID)
	})

	return result
}

// linksSeeds reports whether some pair of seeds reaches a node through two
// different neighbors. It returns every seed reaching the node, ascending.
func linksSeeds(bySeed map[int64][]int64) ([]int64, bool) {
	if len(bySeed) < 2 {
		return nil, false
	}

	connected := make([]int64, 0, len(bySeed))
	for s := range bySeed {
		connected = append(connected, s)
	}

	slices.Sort(connected)

	for i, s1 := range connected {
		for _, s2 := range connected[i+1:] {
			if distinctArrival(bySeed[s1], bySeed[s2]) {
				return connected, true
			}
		}
	}

	return nil, false
}

// distinctArrival reports whether x and y can be chosen from a and b with x != y.
func distinctArrival(a, b []int64) bool {
	return len(a) > 1 || len(b) > 1 || (len(a) == 1 && len(b) == 1 && a[0] != b[0])
}

// reachWithin maps every non-seed node within radius hops of src, without
// traversing other seeds, to the neighbors that precede it on a shortest
// path from src.
func reachWithin(adj map[int64][]int64, src int64, radius int, seeds map[int64]bool) map[int64][]int64 {
	dist := map[int64]int{src: 0}
	queue := []int64{src}
	via := make(map[int64][]int64)

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		if radius > 0 && dist[u] >= radius {
			continue
		}

		for _, v := range adj[u] {
			if d, ok := dist[v]; ok {
				if d == dist[u]+1 && !seeds[v] {
					via[v] = append(via[v], u)
				}

				continue
			}

			dist[v] = dist[u] + 1

			if seeds[v] {
				continue
			}

			via[v] = []int64{u}
			queue = append(queue, v)
		}
	}

	return via
}

// labelsWithout labels connected components after removing the given nodes.
func (a *BridgeAnalyzer) labelsWithout(g *models.NetworkGraph, removed map[int64]bool) map[int64]int {
	ids := make([]int64, 0, len(g.Nodes))
	for id := range g.Nodes {
		if !removed[id] {
			ids = append(ids, id)
		}
	}

	edges := make([]models.RelationEdge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if removed[e.Source] || removed[e.Target] {
			continue
		}

		edges = append(edges, e)
	}

	return a.calc.ComponentLabels(ids, edges)
}

// ArticulationPoints returns the cut vertices of the undirected graph in
// ascending order, using an iterative Tarjan low-link search.
func ArticulationPoints(g *models.NetworkGraph) []int64 {
	adj := adjacency(g)

	ids := g.NodeIDs()
	disc := make(map[int64]int, len(ids))
	low := make(map[int64]int, len(ids))
	isCut := make(map[int64]bool)
	timer := 0

	type frame struct {
		node     int64
		parent   int64
		hasPar   bool
		next     int
		children int
	}

	for _, root := range ids {
		if _, ok := disc[root]; ok {
			continue
		}

		timer++
		disc[root], low[root] = timer, timer
		stack := []*frame{{node: root}}

		for len(stack) > 0 {
			f := stack[len(stack)-1]

			if f.next < len(adj[f.node]) {
				v := adj[f.node][f.next]
				f.next++

				if f.hasPar && v == f.parent {
					continue
				}

				if _, seen := disc[v]; seen {
					low[f.node] = min(low[f.node], disc[v])
					continue
				}

				timer++
				disc[v], low[v] = timer, timer
				f.children++
				stack = append(stack, &frame{node: v, parent: f.node, hasPar: true})

				continue
			}

			stack = stack[:len(stack)-1]
			if !f.hasPar {
				if f.children > 1 {
					isCut[f.node] = true
				}

				continue
			}

			p := f.parent
			low[p] = min(low[p], low[f.node])

			if pf := stack[len(stack)-1]; pf.hasPar && low[f.node] >= disc[p] {
				isCut[p] = true
			}
		}
	}

	cuts := make([]int64, 0, len(isCut))
	for id := range isCut {
		cuts = append(cuts, id)
	}

	slices.Sort(cuts)

	return cuts
}
