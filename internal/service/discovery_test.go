package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

func discover(t *testing.T, store *mockRelationStore, maxNodes int, p DiscoverParams) *Discovery {
	t.Helper()

	d, err := NewDiscoveryService(store, testLogger(), maxNodes).Discover(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	return d
}

func TestDiscover_DepthZeroReturnsSeeds(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2}, []models.RelationEdge{kin(1, 2, 75)})

	for _, types := range [][]models.RelationType{nil, {models.RelationOffice}} {
		d := discover(t, store, 0, DiscoverParams{Seeds: []int64{1, 7}, MaxDepth: 0, RelationTypes: types})

		if got := d.NodeIDs(); !slices.Equal(got, []int64{1, 7}) {
			t.Errorf("nodes = %v, want seeds only", got)
		}

		if len(d.Edges) != 0 {
			t.Errorf("edges = %v, want none", d.Edges)
		}
	}

	if n := store.count("GetEdgesBatch"); n != 0 {
		t.Errorf("GetEdgesBatch called %d times, want 0", n)
	}
}

func TestDiscover_NoRelations(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2}, []models.RelationEdge{assoc(2, 3, 9)})
	d := discover(t, store, 0, DiscoverParams{Seeds: []int64{1}, MaxDepth: 3, RelationTypes: []models.RelationType{models.RelationKinship}})

	if len(d.Depths) != 1 || len(d.Edges) != 0 {
		t.Errorf("discovery = %+v, want the lone seed", d)
	}
}

func TestDiscover_LevelByLevel(t *testing.T) {
	t.Parallel()

	store := newMemStore(nil, []models.RelationEdge{kin(1, 2, 180), kin(2, 3, 180), kin(3, 4, 180)})
	d := discover(t, store, 0, DiscoverParams{Seeds: []int64{1}, MaxDepth: 2})

	want := map[int64]int{1: 0, 2: 1, 3: 2}
	if len(d.Depths) != len(want) {
		t.Fatalf("depths = %v, want %v", d.Depths, want)
	}

	for id, depth := range want {
		if d.Depths[id] != depth {
			t.Errorf("depth[%d] = %d, want %d", id, d.Depths[id], depth)
		}
	}

	if len(d.Edges) != 2 || d.Edges[0].Depth != 1 || d.Edges[1].Depth != 2 {
		t.Errorf("edges = %+v, want (1,2)@1 and (2,3)@2", d.Edges)
	}

	if !slices.EqualFunc(store.batches, [][]int64{{1}, {2}}, slices.Equal[[]int64]) {
		t.Errorf("frontiers = %v, want [[1] [2]]", store.batches)
	}
}

func TestDiscover_VisitedNodesNotReexpanded(t *testing.T) {
	t.Parallel()

	store := newMemStore(nil, []models.RelationEdge{kin(1, 2, 75), kin(1, 3, 75), kin(2, 3, 75)})
	d := discover(t, store, 0, DiscoverParams{Seeds: []int64{1}, MaxDepth: 5, IncludeReciprocal: true})

	if len(d.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(d.Edges))
	}

	// Depth 2 finds no new nodes, so depth 3 never runs.
	if n := store.count("GetEdgesBatch"); n != 2 {
		t.Errorf("GetEdgesBatch called %d times, want 2", n)
	}

	for _, e := range d.Edges {
		if e.Source == 2 && e.Target == 3 && e.Depth != 2 {
			t.Errorf("edge 2->3 depth = %d, want 2", e.Depth)
		}
	}
}

func TestDiscover_KeepsIdenticalRowsAndParallelTypes(t *testing.T) {
	t.Parallel()

	store := newMemStore(nil, []models.RelationEdge{
		kin(1762, 100, 180),
		kin(1762, 100, 180),
		kin(1762, 100, 75),
		assoc(1762, 100, 9),
	})

	d := discover(t, store, 0, DiscoverParams{Seeds: []int64{1762}, MaxDepth: 2, IncludeReciprocal: true})

	if len(d.Edges) != 4 {
		t.Errorf("edges = %d, want all 4 rows", len(d.Edges))
	}

	if len(d.Depths) != 2 {
		t.Errorf("nodes = %d, want 2", len(d.Depths))
	}
}

func TestDiscover_StoreErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	calls := 0
	store := &mockRelationStore{
		getEdgesBatch: func(_ context.Context, _ []int64, _ []models.RelationType, _ bool) ([]models.RelationEdge, error) {
			calls++
			if calls == 2 {
				return nil, boom
			}

			return []models.RelationEdge{kin(1, 2, 75)}, nil
		},
	}

	d, err := NewDiscoveryService(store, testLogger(), 0).Discover(context.Background(), DiscoverParams{Seeds: []int64{1}, MaxDepth: 3}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}

	if d != nil {
		t.Errorf("discovery = %+v, want nil on error", d)
	}
}

func TestDiscover_Progress(t *testing.T) {
	t.Parallel()

	store := newMemStore(nil, []models.RelationEdge{kin(1, 2, 180), kin(2, 3, 180)})

	var events []models.DiscoveryProgress

	_, err := NewDiscoveryService(store, testLogger(), 0).Discover(context.Background(),
		DiscoverParams{Seeds: []int64{1}, MaxDepth: 3},
		func(p models.DiscoveryProgress) { events = append(events, p) })
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []models.DiscoveryProgress{
		{Depth: 1, FrontierSize: 1, Nodes: 2, Edges: 1},
		{Depth: 2, FrontierSize: 1, Nodes: 3, Edges: 2},
		{Depth: 3, FrontierSize: 0, Nodes: 3, Edges: 2},
	}

	if !slices.Equal(events, want) {
		t.Errorf("progress = %+v, want %+v", events, want)
	}
}

func TestDiscover_NodeCap(t *testing.T) {
	t.Parallel()

	var edges []models.RelationEdge
	for i := int64(2); i <= 10; i++ {
		edges = append(edges, kin(1, i, 180), kin(i, i+100, 180))
	}

	store := newMemStore(nil, edges)
	d := discover(t, store, 5, DiscoverParams{Seeds: []int64{1}, MaxDepth: 3})

	if len(d.Depths) != 5 {
		t.Errorf("nodes = %d, want cap of 5", len(d.Depths))
	}

	if !d.Truncated {
		t.Error("Truncated = false, want true")
	}

	if n := store.count("GetEdgesBatch"); n != 1 {
		t.Errorf("GetEdgesBatch called %d times, want expansion to stop after the capped level", n)
	}
}

func TestDiscover_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemStore(nil, []models.RelationEdge{kin(1, 2, 75)})

	_, err := NewDiscoveryService(store, testLogger(), 0).Discover(ctx, DiscoverParams{Seeds: []int64{1}, MaxDepth: 1}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
