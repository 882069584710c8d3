// Package analysis computes structural metrics over discovered person networks.
//
// Networks are loaded into an undirected gonum graph: parallel relations
// between the same two persons collapse to one connection and self-relations
// are dropped. Degenerate inputs (no nodes, no edges) yield zero values.
package analysis

import (
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// build creates an undirected graph holding every node ID and every edge
// whose endpoints are both present.
func build(nodeIDs []int64, edges []models.RelationEdge) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()

	for _, id := range nodeIDs {
		if g.Node(id) == nil {
			g.AddNode(simple.Node(id))
		}
	}

	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}

		from, to := g.Node(e.Source), g.Node(e.Target)
		if from == nil || to == nil || g.HasEdgeBetween(e.Source, e.Target) {
			continue
		}

		g.SetEdge(g.NewEdge(from, to))
	}

	return g
}

// sortedIDs returns the graph's node IDs in ascending order.
func sortedIDs(g graph.Graph) []int64 {
	nodes := graph.NodesOf(g.Nodes())
	ids := make([]int64, len(nodes))

	for i, n := range nodes {
		ids[i] = n.ID()
	}

	slices.Sort(ids)

	return ids
}

// components returns connected components with member IDs sorted, ordered by
// their smallest member.
func components(g *simple.UndirectedGraph) [][]int64 {
	raw := topo.ConnectedComponents(g)
	out := make([][]int64, 0, len(raw))

	for _, c := range raw {
		ids := make([]int64, len(c))
		for i, n := range c {
			ids[i] = n.ID()
		}

		slices.Sort(ids)
		out = append(out, ids)
	}

	slices.SortFunc(out, func(a, b []int64) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		default:
			return 0
		}
	})

	return out
}

// hopDistances returns the BFS hop count from src to every reachable node, src excluded.
func hopDistances(g *simple.UndirectedGraph, src int64) map[int64]int {
	dist := make(map[int64]int)

	bf := traverse.BreadthFirst{}
	bf.Walk(g, g.Node(src), func(n graph.Node, d int) bool {
		if n.ID() != src {
			dist[n.ID()] = d
		}

		return false
	})

	return dist
}

func degree(g *simple.UndirectedGraph, id int64) int {
	return g.From(id).Len()
}
