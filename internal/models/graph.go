package models

import (
	"cmp"
	"slices"
)

// NetworkGraph is the request-scoped graph assembled during exploration.
// Every edge's endpoints must be present in Nodes; call FilterEdges after
// mutating either side.
type NetworkGraph struct {
	Nodes map[int64]*PersonNode
	Edges []RelationEdge
}

// NewNetworkGraph returns an empty graph.
func NewNetworkGraph() *NetworkGraph {
	return &NetworkGraph{Nodes: make(map[int64]*PersonNode)}
}

// FilterEdges drops edges whose endpoints are not both in the node set.
func (g *NetworkGraph) FilterEdges() {
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.Source]; !ok {
			continue
		}

		if _, ok := g.Nodes[e.Target]; !ok {
			continue
		}

		kept = append(kept, e)
	}

	g.Edges = kept
}

// NodeIDs returns the node IDs in ascending order.
func (g *NetworkGraph) NodeIDs() []int64 {
	ids := make([]int64, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// SortedNodes returns node values ordered by depth, then ID.
func (g *NetworkGraph) SortedNodes() []PersonNode {
	nodes := make([]PersonNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, *n)
	}

	slices.SortFunc(nodes, func(a, b PersonNode) int {
		if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return nodes
}

// NetworkMetrics is a read-only snapshot derived from a NetworkGraph.
type NetworkMetrics struct {
	TotalPersons          int     `json:"total_persons"`
	QueryPersons          int     `json:"query_persons"`
	DiscoveredPersons     int     `json:"discovered_persons"`
	EdgeCount             int     `json:"edge_count"`
	DirectConnections     int     `json:"direct_connections"`
	BridgeNodeCount       int     `json:"bridge_node_count"`
	Density               float64 `json:"density"`
	AveragePathLength     float64 `json:"average_path_length"`
	ClusteringCoefficient float64 `json:"clustering_coefficient"`
	Components            int     `json:"components"`
	Diameter              int     `json:"diameter"`
}

// BridgeNode is a non-seed person linking the clusters of two or more seeds.
type BridgeNode struct {
	PersonID       int64   `json:"person_id"`
	Label          string  `json:"label"`
	ConnectedSeeds []int64 `json:"connected_seeds"`
	ClusterIDs     []int   `json:"cluster_ids"`
}

// Centrality holds per-node centrality scores.
type Centrality struct {
	Betweenness float64 `json:"betweenness"`
	Closeness   float64 `json:"closeness"`
	Degree      float64 `json:"degree"`
	Eigenvector float64 `json:"eigenvector"`
}

// NetworkResult is the response of a network exploration.
type NetworkResult struct {
	Nodes       []PersonNode         `json:"nodes"`
	Edges       []RelationEdge       `json:"edges"`
	Metrics     NetworkMetrics       `json:"metrics"`
	BridgeNodes []BridgeNode         `json:"bridge_nodes"`
	CutVertices []int64              `json:"cut_vertices,omitempty"`
	Centrality  map[int64]Centrality `json:"centrality,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// RecursiveOptions tunes the single-query recursive traversal.
type RecursiveOptions struct {
	RelationTypes     []RelationType
	IncludeReciprocal bool
	MaxNodes          int
}

// RecursiveResult is the subgraph returned by the recursive traversal.
type RecursiveResult struct {
	CenterID   int64          `json:"center_id"`
	MaxDegrees int            `json:"max_degrees"`
	Nodes      []PersonNode   `json:"nodes"`
	Edges      []RelationEdge `json:"edges"`
	Metrics    NetworkMetrics `json:"metrics"`
}

// PathStep is one hop on a shortest path: the person reached and the edge
// used to reach it. Via is nil for the starting person.
type PathStep struct {
	PersonID int64
	Via      *RelationEdge
}

// PathResult is a shortest path between two persons.
type PathResult struct {
	FromID int64          `json:"from_id"`
	ToID   int64          `json:"to_id"`
	Hops   int            `json:"hops"`
	Nodes  []PersonNode   `json:"nodes"`
	Edges  []RelationEdge `json:"edges"`
}

// DiscoveryProgress reports the state of a discovery after one depth level.
type DiscoveryProgress struct {
	Depth        int `json:"depth"`
	FrontierSize int `json:"frontier_size"`
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
}

// ProgressFunc receives discovery progress. It runs on the discovering goroutine.
type ProgressFunc func(DiscoveryProgress)
