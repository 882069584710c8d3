package client

import (
	"encoding/json"
	"time"
)

// Relation types accepted by the API.
const (
	RelationKinship     = "kinship"
	RelationAssociation = "association"
	RelationOffice      = "office"
)

// Person is a node in a person network.
type Person struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Name        string `json:"name,omitempty"`
	NameChn     string `json:"name_chn,omitempty"`
	DynastyCode *int   `json:"dynasty_code,omitempty"`
	Dynasty     string `json:"dynasty,omitempty"`
	BirthYear   *int   `json:"birth_year,omitempty"`
	DeathYear   *int   `json:"death_year,omitempty"`
	Depth       int    `json:"depth"`
	IsSeed      bool   `json:"is_seed"`
}

// Edge is a relation between two persons.
type Edge struct {
	Source   int64   `json:"source"`
	Target   int64   `json:"target"`
	Type     string  `json:"edge_type"`
	Code     int     `json:"edge_code"`
	Label    string  `json:"label,omitempty"`
	Weight   float64 `json:"weight,omitempty"`
	Depth    int     `json:"depth"`
	Color    string  `json:"color,omitempty"`
	Strength float64 `json:"strength,omitempty"`
}

// NetworkMetrics summarizes a network.
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

// BridgeNode is a discovered person linking two or more seeds.
type BridgeNode struct {
	PersonID       int64   `json:"person_id"`
	Label          string  `json:"label"`
	ConnectedSeeds []int64 `json:"connected_seeds"`
	ClusterIDs     []int   `json:"cluster_ids"`
}

// Centrality holds per-person centrality scores.
type Centrality struct {
	Betweenness float64 `json:"betweenness"`
	Closeness   float64 `json:"closeness"`
	Degree      float64 `json:"degree"`
	Eigenvector float64 `json:"eigenvector"`
}

// NetworkResult is the response of an exploration.
type NetworkResult struct {
	Nodes       []Person             `json:"nodes"`
	Edges       []Edge               `json:"edges"`
	Metrics     NetworkMetrics       `json:"metrics"`
	BridgeNodes []BridgeNode         `json:"bridge_nodes"`
	CutVertices []int64              `json:"cut_vertices,omitempty"`
	Centrality  map[int64]Centrality `json:"centrality,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// RecursiveResult is the response of the recursive traversal.
type RecursiveResult struct {
	CenterID   int64          `json:"center_id"`
	MaxDegrees int            `json:"max_degrees"`
	Nodes      []Person       `json:"nodes"`
	Edges      []Edge         `json:"edges"`
	Metrics    NetworkMetrics `json:"metrics"`
}

// PathResult is a shortest path between two persons.
type PathResult struct {
	FromID int64    `json:"from_id"`
	ToID   int64    `json:"to_id"`
	Hops   int      `json:"hops"`
	Nodes  []Person `json:"nodes"`
	Edges  []Edge   `json:"edges"`
}

// EdgeStats holds relation counts.
type EdgeStats struct {
	PersonIDs   []int64 `json:"person_ids"`
	Kinship     int     `json:"kinship"`
	Association int     `json:"association"`
	Office      int     `json:"office"`
	Total       int     `json:"total"`
}

// ExploreRequest is the payload for an exploration. A nil Depth means depth 1.
type ExploreRequest struct {
	PersonIDs         []int64  `json:"person_ids"`
	Depth             *int     `json:"depth,omitempty"`
	RelationTypes     []string `json:"relation_types,omitempty"`
	IncludeReciprocal bool     `json:"include_reciprocal"`
	ProximityRadius   int      `json:"proximity_radius,omitempty"`
	IncludeCentrality bool     `json:"include_centrality,omitempty"`
	CentralityFor     []int64  `json:"centrality_for,omitempty"`
	ExactBridges      bool     `json:"exact_bridges,omitempty"`
}

// NetworkOptions are the query options of a single-person network.
type NetworkOptions struct {
	Depth             int
	RelationTypes     []string
	IncludeReciprocal bool
}

// RecursiveOptions are the query options of the recursive traversal.
type RecursiveOptions struct {
	Degrees           int
	MaxNodes          int
	RelationTypes     []string
	IncludeReciprocal bool
}

// Progress reports exploration state after one depth level.
type Progress struct {
	Depth        int `json:"depth"`
	FrontierSize int `json:"frontier_size"`
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
}

// StreamEvent is one message of the WebSocket exploration stream.
type StreamEvent struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// HealthResponse is the liveness check response.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Dialect       string  `json:"dialect,omitempty"`
	SchemaVersion int     `json:"schema_version"`
	WSSessions    int     `json:"ws_sessions"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
