package service

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// chain is 1 -> 2 -> 3 <- 4 <- 5 in kinship.
var chain = []models.RelationEdge{kin(1, 2, 180), kin(2, 3, 180), kin(4, 3, 180), kin(5, 4, 180)}

func newTestNetworkService(store *mockRelationStore, cfg NetworkConfig) *NetworkService {
	return NewNetworkService(store, cfg, testLogger())
}

func nodeIDs(nodes []models.PersonNode) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}

	return ids
}

func TestExplore_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1}, nil), NetworkConfig{MaxDepth: 3})

	tests := []struct {
		name string
		req  models.ExploreRequest
		want error
	}{
		{"no seeds", models.ExploreRequest{}, models.ErrNoSeeds},
		{"negative id", models.ExploreRequest{PersonIDs: []int64{-1}}, models.ErrInvalidRequest},
		{"bad type", models.ExploreRequest{PersonIDs: []int64{1}, RelationTypes: []models.RelationType{"marriage"}}, models.ErrInvalidRequest},
		{"depth above request max", models.ExploreRequest{PersonIDs: []int64{1}, Depth: models.Ptr(11)}, models.ErrInvalidRequest},
		{"depth above configured max", models.ExploreRequest{PersonIDs: []int64{1}, Depth: models.Ptr(4)}, models.ErrDepthOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Explore(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExplore_UnknownSeed(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1}, chain)
	svc := newTestNetworkService(store, NetworkConfig{})

	_, err := svc.Explore(context.Background(), models.ExploreRequest{PersonIDs: []int64{1, 404}})
	if !errors.Is(err, models.ErrPersonNotFound) {
		t.Fatalf("err = %v, want ErrPersonNotFound", err)
	}

	if n := store.count("GetEdgesBatch"); n != 0 {
		t.Errorf("discovery ran %d batches after a missing seed", n)
	}
}

func TestExplore_NoRelationsShortCircuits(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2, 3, 4, 5}, chain)
	svc := newTestNetworkService(store, NetworkConfig{})

	res, err := svc.Explore(context.Background(), models.ExploreRequest{
		PersonIDs:     []int64{1},
		Depth:         models.Ptr(3),
		RelationTypes: []models.RelationType{models.RelationOffice},
	})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	if !slices.Equal(nodeIDs(res.Nodes), []int64{1}) || len(res.Edges) != 0 {
		t.Errorf("result = %+v, want lone seed", res)
	}

	if res.Metrics.DiscoveredPersons != 0 || res.Metrics.EdgeCount != 0 || res.Metrics.Density != 0 {
		t.Errorf("metrics = %+v, want zero-valued", res.Metrics)
	}

	if n := store.count("GetEdgesBatch"); n != 0 {
		t.Errorf("GetEdgesBatch called %d times, want 0", n)
	}
}

func TestExplore_TwoSeedsWithBridge(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2, 3, 4, 5}, chain)
	svc := newTestNetworkService(store, NetworkConfig{})

	res, err := svc.Explore(context.Background(), models.ExploreRequest{
		PersonIDs:    []int64{5, 1},
		Depth:        models.Ptr(2),
		ExactBridges: true,
	})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	if !slices.Equal(nodeIDs(res.Nodes), []int64{1, 5, 2, 4, 3}) {
		t.Errorf("nodes = %v, want seeds first then by depth and id", nodeIDs(res.Nodes))
	}

	for _, n := range res.Nodes {
		if n.IsSeed != (n.ID == 1 || n.ID == 5) {
			t.Errorf("node %d IsSeed = %v", n.ID, n.IsSeed)
		}

		if n.Label == "" {
			t.Errorf("node %d has no label", n.ID)
		}
	}

	for _, e := range res.Edges {
		if e.Color != ColorKinship || e.Weight == 0 || e.Label == "" {
			t.Errorf("edge not enriched: %+v", e)
		}
	}

	want := models.NetworkMetrics{
		TotalPersons:      5,
		QueryPersons:      2,
		DiscoveredPersons: 3,
		EdgeCount:         4,
		DirectConnections: 0,
		BridgeNodeCount:   1,
		Density:           0.4,
		AveragePathLength: 2,
		Components:        1,
		Diameter:          4,
	}

	if res.Metrics != want {
		t.Errorf("metrics = %+v, want %+v", res.Metrics, want)
	}

	if len(res.BridgeNodes) != 1 || res.BridgeNodes[0].PersonID != 3 {
		t.Errorf("bridges = %+v, want person 3", res.BridgeNodes)
	}

	if !slices.Equal(res.CutVertices, []int64{2, 3, 4}) {
		t.Errorf("cut vertices = %v, want [2 3 4]", res.CutVertices)
	}

	if res.Centrality != nil {
		t.Errorf("centrality = %v, want omitted", res.Centrality)
	}
}

func TestExplore_DisconnectedSeeds(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2, 8, 9}, []models.RelationEdge{kin(2, 1, 75), kin(9, 8, 75)})
	svc := newTestNetworkService(store, NetworkConfig{})

	res, err := svc.Explore(context.Background(), models.ExploreRequest{PersonIDs: []int64{2, 9}, Depth: models.Ptr(2)})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	if res.Metrics.EdgeCount != 2 || res.Metrics.Components != 2 {
		t.Errorf("metrics = %+v, want both seed relations in two components", res.Metrics)
	}

	if res.Metrics.DirectConnections != 0 || len(res.BridgeNodes) != 0 {
		t.Errorf("metrics = %+v bridges = %v, want no connections and no bridges", res.Metrics, res.BridgeNodes)
	}
}

func TestExplore_DirectConnectionsBetweenSeeds(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1, 2, 3, 4, 5}, chain), NetworkConfig{})

	res, err := svc.Explore(context.Background(), models.ExploreRequest{PersonIDs: []int64{1, 2}, Depth: models.Ptr(1)})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	// 1->2 joins the seeds; 2->3 only touches one.
	if res.Metrics.EdgeCount != 2 || res.Metrics.DirectConnections != 1 {
		t.Errorf("metrics = %+v, want 2 edges and 1 direct connection", res.Metrics)
	}
}

func TestExplore_ClampsDepthForHeavySeeds(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2, 3}, chain)
	svc := newTestNetworkService(store, NetworkConfig{MaxSeedEdges: 1})

	res, err := svc.Explore(context.Background(), models.ExploreRequest{
		PersonIDs:         []int64{2},
		Depth:             models.Ptr(3),
		IncludeReciprocal: true,
	})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want one clamp warning", res.Warnings)
	}

	if n := store.count("GetEdgesBatch"); n != 1 {
		t.Errorf("GetEdgesBatch called %d times, want 1 after clamping", n)
	}

	if !slices.Equal(nodeIDs(res.Nodes), []int64{2, 1, 3}) {
		t.Errorf("nodes = %v, want [2 1 3]", nodeIDs(res.Nodes))
	}
}

func TestExplore_Centrality(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1, 2, 3, 4, 5}, chain), NetworkConfig{})

	res, err := svc.Explore(context.Background(), models.ExploreRequest{
		PersonIDs:         []int64{1},
		Depth:             models.Ptr(2),
		IncludeCentrality: true,
		CentralityFor:     []int64{2, 999},
	})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	if len(res.Centrality) != 2 {
		t.Fatalf("centrality = %v, want entries for 2 and 999", res.Centrality)
	}

	if res.Centrality[999] != (models.Centrality{}) {
		t.Errorf("absent node = %+v, want zero", res.Centrality[999])
	}

	if res.Centrality[2].Betweenness <= 0 {
		t.Errorf("betweenness[2] = %v, want > 0 for the middle of 1-2-3", res.Centrality[2].Betweenness)
	}
}

func TestExplore_Deterministic(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1, 2, 3, 4, 5}, chain), NetworkConfig{})
	req := models.ExploreRequest{PersonIDs: []int64{1, 5}, Depth: models.Ptr(2), IncludeReciprocal: true}

	first, err := svc.Explore(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	second, err := svc.Explore(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestExplore_Cache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cacheSize int
		wantCalls int
	}{
		{"enabled", 16, 1},
		{"disabled", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore([]int64{1, 2, 3, 4, 5}, chain)
			svc := newTestNetworkService(store, NetworkConfig{CacheSize: tt.cacheSize, CacheTTL: time.Minute})

			// Seed order and duplicates do not change the cache key.
			for _, ids := range [][]int64{{1, 5}, {5, 1, 1}} {
				if _, err := svc.Explore(context.Background(), models.ExploreRequest{PersonIDs: ids}); err != nil {
					t.Fatalf("Explore: %v", err)
				}
			}

			if n := store.count("GetEdgeStats"); n != tt.wantCalls {
				t.Errorf("GetEdgeStats called %d times, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestExplore_CacheKeyIncludesOptions(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2, 3, 4, 5}, chain)
	svc := newTestNetworkService(store, NetworkConfig{CacheSize: 16, CacheTTL: time.Minute})

	reqs := []models.ExploreRequest{
		{PersonIDs: []int64{1}},
		{PersonIDs: []int64{1}, IncludeReciprocal: true},
		{PersonIDs: []int64{1}, Depth: models.Ptr(2)},
		{PersonIDs: []int64{1}, RelationTypes: []models.RelationType{models.RelationKinship}},
	}

	for _, req := range reqs {
		if _, err := svc.Explore(context.Background(), req); err != nil {
			t.Fatalf("Explore: %v", err)
		}
	}

	if n := store.count("GetEdgeStats"); n != len(reqs) {
		t.Errorf("GetEdgeStats called %d times, want %d distinct computations", n, len(reqs))
	}

	if svc.CachedResults() != len(reqs) {
		t.Errorf("cached = %d, want %d", svc.CachedResults(), len(reqs))
	}
}

func TestExplore_StoreErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection lost")
	store := newMemStore([]int64{1}, chain)
	store.getNodesBatch = func(context.Context, []int64) (map[int64]*models.PersonNode, error) {
		return nil, boom
	}

	svc := newTestNetworkService(store, NetworkConfig{})

	if _, err := svc.Explore(context.Background(), models.ExploreRequest{PersonIDs: []int64{1}}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestExplore_SurfacesStoreWarnings(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2, 3, 4, 5}, chain)
	base := store.getEdgesBatch
	store.getEdgesBatch = func(ctx context.Context, ids []int64, types []models.RelationType, reciprocal bool) ([]models.RelationEdge, error) {
		models.AddWarning(ctx, "office relations truncated at 20000 rows per batch")
		return base(ctx, ids, types, reciprocal)
	}

	svc := newTestNetworkService(store, NetworkConfig{})

	res, err := svc.Explore(context.Background(), models.ExploreRequest{PersonIDs: []int64{1}, Depth: models.Ptr(2)})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	want := []string{"office relations truncated at 20000 rows per batch"}
	if !slices.Equal(res.Warnings, want) {
		t.Errorf("Warnings = %q, want %q", res.Warnings, want)
	}
}

func TestExplore_CoalescedSurvivesCallerCancel(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1, 2, 3, 4, 5}, chain)
	base := store.getEdgeStats

	started := make(chan struct{})
	release := make(chan struct{})
	firstErr := make(chan error, 1)

	var once sync.Once

	store.getEdgeStats = func(ctx context.Context, ids []int64, reciprocal bool) (*models.EdgeStats, error) {
		first := false
		once.Do(func() {
			first = true
			close(started)
		})

		<-release

		if first {
			firstErr <- ctx.Err()
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return base(ctx, ids, reciprocal)
	}

	svc := newTestNetworkService(store, NetworkConfig{CacheSize: 4, CacheTTL: time.Minute})
	req := models.ExploreRequest{PersonIDs: []int64{1, 5}, Depth: models.Ptr(2)}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)

	go func() {
		_, err := svc.Explore(ctxA, req)
		errA <- err
	}()

	<-started
	cancelA()

	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
	}

	type outcome struct {
		res *models.NetworkResult
		err error
	}

	done := make(chan outcome, 1)

	go func() {
		res, err := svc.Explore(context.Background(), req)
		done <- outcome{res, err}
	}()

	close(release)

	got := <-done
	if got.err != nil {
		t.Fatalf("second caller: %v", got.err)
	}

	if len(got.res.Nodes) != 5 {
		t.Errorf("nodes = %v, want 5", nodeIDs(got.res.Nodes))
	}

	if err := <-firstErr; err != nil {
		t.Errorf("shared computation saw %v after the first caller cancelled", err)
	}
}

func TestExploreWithProgress(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1, 2, 3}, chain), NetworkConfig{CacheSize: 4, CacheTTL: time.Minute})

	var depths []int

	_, err := svc.ExploreWithProgress(context.Background(),
		models.ExploreRequest{PersonIDs: []int64{1}, Depth: models.Ptr(2)},
		func(p models.DiscoveryProgress) { depths = append(depths, p.Depth) })
	if err != nil {
		t.Fatalf("ExploreWithProgress: %v", err)
	}

	if !slices.Equal(depths, []int{1, 2}) {
		t.Errorf("progress depths = %v, want [1 2]", depths)
	}
}

func TestPersonNetwork(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1, 2}, chain), NetworkConfig{})

	res, err := svc.PersonNetwork(context.Background(), 1, 1, []models.RelationType{models.RelationKinship}, false)
	if err != nil {
		t.Fatalf("PersonNetwork: %v", err)
	}

	// One distinct kin target plus the seed.
	if len(res.Nodes) != 2 || len(res.Edges) != 1 {
		t.Errorf("nodes=%d edges=%d, want 2 and 1", len(res.Nodes), len(res.Edges))
	}

	if res.Nodes[1].Label != "P2" {
		t.Errorf("label = %q, want store label", res.Nodes[1].Label)
	}

	if _, err := svc.PersonNetwork(context.Background(), 0, 1, nil, false); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest for id 0", err)
	}
}

func TestRecursiveNetwork(t *testing.T) {
	t.Parallel()

	store := newMemStore([]int64{1}, nil)
	store.getNetworkEdges = func(_ context.Context, center int64, degrees int, _ models.RecursiveOptions) (*models.RecursiveResult, error) {
		return &models.RecursiveResult{
			CenterID:   center,
			MaxDegrees: degrees,
			Nodes:      []models.PersonNode{{ID: 1, IsSeed: true}, {ID: 2, Depth: 1}, {ID: 3, Depth: 1}},
			Edges:      []models.RelationEdge{kin(1, 2, 75), assoc(1, 3, 9)},
		}, nil
	}

	svc := newTestNetworkService(store, NetworkConfig{})

	res, err := svc.RecursiveNetwork(context.Background(), 1, 2, models.RecursiveOptions{})
	if err != nil {
		t.Fatalf("RecursiveNetwork: %v", err)
	}

	if res.Edges[0].Color != ColorKinship || res.Edges[1].Color != ColorAssociation {
		t.Errorf("edges not enriched: %+v", res.Edges)
	}

	if res.Metrics.TotalPersons != 3 || res.Metrics.QueryPersons != 1 || res.Metrics.DirectConnections != 0 {
		t.Errorf("metrics = %+v", res.Metrics)
	}

	tests := []struct {
		name    string
		id      int64
		degrees int
		opts    models.RecursiveOptions
		want    error
	}{
		{"degrees too high", 1, 5, models.RecursiveOptions{}, models.ErrDepthOutOfRange},
		{"negative degrees", 1, -1, models.RecursiveOptions{}, models.ErrDepthOutOfRange},
		{"bad id", 0, 1, models.RecursiveOptions{}, models.ErrInvalidPersonID},
		{"bad type", 1, 1, models.RecursiveOptions{RelationTypes: []models.RelationType{"x"}}, models.ErrInvalidRelationType},
		{"unknown person", 7, 1, models.RecursiveOptions{}, models.ErrPersonNotFound},
	}

	for _, tt := range tests {
		if _, err := svc.RecursiveNetwork(context.Background(), tt.id, tt.degrees, tt.opts); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestEdgeStats(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1, 2, 3, 4, 5}, chain), NetworkConfig{})

	stats, err := svc.EdgeStats(context.Background(), []int64{2}, true)
	if err != nil {
		t.Fatalf("EdgeStats: %v", err)
	}

	if stats.Kinship != 2 || stats.Total != 2 {
		t.Errorf("stats = %+v, want 2 kinship", stats)
	}

	many := make([]int64, models.MaxSeeds+1)
	for i := range many {
		many[i] = int64(i + 1)
	}

	tests := []struct {
		ids  []int64
		want error
	}{
		{nil, models.ErrNoSeeds},
		{many, models.ErrTooManySeeds},
		{[]int64{0}, models.ErrInvalidPersonID},
	}

	for _, tt := range tests {
		if _, err := svc.EdgeStats(context.Background(), tt.ids, false); !errors.Is(err, tt.want) {
			t.Errorf("EdgeStats(%d ids): err = %v, want %v", len(tt.ids), err, tt.want)
		}
	}
}

func TestPerson(t *testing.T) {
	t.Parallel()

	svc := newTestNetworkService(newMemStore([]int64{1762}, nil), NetworkConfig{})

	p, err := svc.Person(context.Background(), 1762)
	if err != nil {
		t.Fatalf("Person: %v", err)
	}

	if p.ID != 1762 {
		t.Errorf("ID = %d, want 1762", p.ID)
	}

	if _, err := svc.Person(context.Background(), 1); !errors.Is(err, models.ErrPersonNotFound) {
		t.Errorf("err = %v, want ErrPersonNotFound", err)
	}

	if _, err := svc.Person(context.Background(), -3); !errors.Is(err, models.ErrInvalidPersonID) {
		t.Errorf("err = %v, want ErrInvalidPersonID", err)
	}
}
