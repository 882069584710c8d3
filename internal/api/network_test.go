package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cbdb-network/cbdbnet/internal/api"
	"github.com/cbdb-network/cbdbnet/internal/models"
)

func networkRouter(svc *mockNetworkService, warm api.Warmer) *gin.Engine {
	h := api.NewNetworkHandler(svc, warm, 5000, testLogger())

	r := gin.New()
	r.GET("/network/:id", h.Person)
	r.GET("/network/:id/recursive", h.Recursive)
	r.GET("/network/:id/stats", h.Stats)
	r.POST("/network/explore", h.Explore)
	r.POST("/network/warm", h.Warm)
	r.GET("/path/:from/:to", h.Path)

	return r
}

func TestNetworkPerson_PassesQuery(t *testing.T) {
	t.Parallel()

	var (
		gotID    int64
		gotDepth int
		gotTypes []models.RelationType
		gotRecip bool
	)

	svc := &mockNetworkService{
		personNetworkFn: func(_ context.Context, id int64, depth int, types []models.RelationType, reciprocal bool) (*models.NetworkResult, error) {
			gotID, gotDepth, gotTypes, gotRecip = id, depth, types, reciprocal

			return &models.NetworkResult{
				Nodes: []models.PersonNode{{ID: id, Label: "王安石", IsSeed: true}},
			}, nil
		},
	}

	w := doRequest(networkRouter(svc, nil), http.MethodGet, "/network/1762?depth=2&types=kinship,association&reciprocal=true", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if gotID != 1762 || gotDepth != 2 || !gotRecip {
		t.Errorf("got id=%d depth=%d reciprocal=%v", gotID, gotDepth, gotRecip)
	}

	if !slices.Equal(gotTypes, []models.RelationType{models.RelationKinship, models.RelationAssociation}) {
		t.Errorf("types = %v", gotTypes)
	}

	var res models.NetworkResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(res.Nodes) != 1 || res.Nodes[0].Label != "王安石" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestNetworkPerson_Defaults(t *testing.T) {
	t.Parallel()

	svc := &mockNetworkService{
		personNetworkFn: func(_ context.Context, _ int64, depth int, types []models.RelationType, reciprocal bool) (*models.NetworkResult, error) {
			if depth != models.DefaultDepth || reciprocal || len(types) != len(models.AllRelationTypes) {
				t.Errorf("defaults not applied: depth=%d types=%v reciprocal=%v", depth, types, reciprocal)
			}

			return &models.NetworkResult{}, nil
		},
	}

	w := doRequest(networkRouter(svc, nil), http.MethodGet, "/network/1762", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestNetworkPerson_BadInput(t *testing.T) {
	t.Parallel()

	svc := &mockNetworkService{
		personNetworkFn: func(context.Context, int64, int, []models.RelationType, bool) (*models.NetworkResult, error) {
			t.Error("service called for invalid input")
			return nil, nil
		},
	}

	for _, path := range []string{
		"/network/abc",
		"/network/0",
		"/network/-5",
		"/network/1762?depth=two",
		"/network/1762?types=friendship",
	} {
		w := doRequest(networkRouter(svc, nil), http.MethodGet, path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
			continue
		}

		if body := decodeError(t, w); body.Code != api.ErrCodeInvalidRequest {
			t.Errorf("%s: code = %q", path, body.Code)
		}
	}
}

func TestNetworkErrors_Mapped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", models.PersonNotFoundError(42), http.StatusNotFound, api.ErrCodeNotFound},
		{"depth", models.ErrFieldOutOfRange("depth", 0, 3), http.StatusBadRequest, api.ErrCodeInvalidRequest},
		{"validation", models.ErrInvalidRequest, http.StatusBadRequest, api.ErrCodeValidationError},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, api.ErrCodeInternalError},
		{"internal", errors.New("database is locked"), http.StatusInternalServerError, api.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockNetworkService{
				personNetworkFn: func(context.Context, int64, int, []models.RelationType, bool) (*models.NetworkResult, error) {
					return nil, tt.err
				},
			}

			w := doRequest(networkRouter(svc, nil), http.MethodGet, "/network/42", "")

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			body := decodeError(t, w)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}

			if strings.Contains(body.Message, "database is locked") {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestNetworkExplore(t *testing.T) {
	t.Parallel()

	var got models.ExploreRequest

	svc := &mockNetworkService{
		exploreFn: func(_ context.Context, req models.ExploreRequest) (*models.NetworkResult, error) {
			got = req

			return &models.NetworkResult{
				BridgeNodes: []models.BridgeNode{{PersonID: 3, ConnectedSeeds: []int64{1, 5}}},
			}, nil
		},
	}

	body := `{"person_ids":[1,5],"depth":2,"relation_types":["kinship"],"proximity_radius":3,"include_centrality":true}`
	w := doRequest(networkRouter(svc, nil), http.MethodPost, "/network/explore", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if !slices.Equal(got.PersonIDs, []int64{1, 5}) || got.EffectiveDepth() != 2 ||
		got.ProximityRadius != 3 || !got.IncludeCentrality {
		t.Errorf("request not decoded: %+v", got)
	}

	var res models.NetworkResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(res.BridgeNodes) != 1 || res.BridgeNodes[0].PersonID != 3 {
		t.Errorf("bridge nodes = %+v", res.BridgeNodes)
	}
}

func TestNetworkExplore_MalformedBody(t *testing.T) {
	t.Parallel()

	w := doRequest(networkRouter(&mockNetworkService{}, nil), http.MethodPost, "/network/explore", `{"person_ids":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestNetworkRecursive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		query        string
		wantDegrees  int
		wantMaxNodes int
	}{
		{"defaults", "", 2, 5000},
		{"explicit", "?degrees=3&max_nodes=100", 3, 100},
		{"max nodes clamped", "?max_nodes=999999", 2, 5000},
		{"non-positive max nodes", "?max_nodes=0", 2, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockNetworkService{
				recursiveFn: func(_ context.Context, id int64, degrees int, opts models.RecursiveOptions) (*models.RecursiveResult, error) {
					if degrees != tt.wantDegrees || opts.MaxNodes != tt.wantMaxNodes {
						t.Errorf("degrees=%d max_nodes=%d, want %d/%d", degrees, opts.MaxNodes, tt.wantDegrees, tt.wantMaxNodes)
					}

					return &models.RecursiveResult{CenterID: id, MaxDegrees: degrees}, nil
				},
			}

			w := doRequest(networkRouter(svc, nil), http.MethodGet, "/network/1762/recursive"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestNetworkStats(t *testing.T) {
	t.Parallel()

	svc := &mockNetworkService{
		edgeStatsFn: func(_ context.Context, ids []int64, reciprocal bool) (*models.EdgeStats, error) {
			if !slices.Equal(ids, []int64{1762}) || !reciprocal {
				t.Errorf("ids=%v reciprocal=%v", ids, reciprocal)
			}

			return &models.EdgeStats{PersonIDs: ids, Kinship: 4, Association: 1, Total: 5}, nil
		},
	}

	w := doRequest(networkRouter(svc, nil), http.MethodGet, "/network/1762/stats?reciprocal=1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats models.EdgeStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if stats.Total != 5 || stats.Kinship != 4 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNetworkPath(t *testing.T) {
	t.Parallel()

	svc := &mockNetworkService{
		shortestPathFn: func(_ context.Context, from, to int64, _ []models.RelationType) (*models.PathResult, error) {
			if to == 9 {
				return nil, models.ErrNoPath
			}

			return &models.PathResult{FromID: from, ToID: to, Hops: 2}, nil
		},
	}

	r := networkRouter(svc, nil)

	w := doRequest(r, http.MethodGet, "/path/1/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var path models.PathResult
	if err := json.Unmarshal(w.Body.Bytes(), &path); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if path.Hops != 2 || path.FromID != 1 || path.ToID != 3 {
		t.Errorf("path = %+v", path)
	}

	if w := doRequest(r, http.MethodGet, "/path/1/9", ""); w.Code != http.StatusNotFound {
		t.Errorf("no path: expected 404, got %d", w.Code)
	}

	if w := doRequest(r, http.MethodGet, "/path/x/9", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad from: expected 400, got %d", w.Code)
	}
}

func TestNetworkWarm(t *testing.T) {
	t.Parallel()

	t.Run("queued", func(t *testing.T) {
		t.Parallel()

		warm := &mockWarmer{}
		w := doRequest(networkRouter(&mockNetworkService{}, warm), http.MethodPost, "/network/warm", `{"person_ids":[1762],"depth":2}`)

		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
		}

		if len(warm.queued) != 1 || warm.queued[0].PersonIDs[0] != 1762 {
			t.Errorf("queued = %+v", warm.queued)
		}
	})

	t.Run("invalid request not queued", func(t *testing.T) {
		t.Parallel()

		warm := &mockWarmer{}
		w := doRequest(networkRouter(&mockNetworkService{}, warm), http.MethodPost, "/network/warm", `{"person_ids":[]}`)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}

		if len(warm.queued) != 0 {
			t.Error("invalid request was queued")
		}
	})

	t.Run("queue full", func(t *testing.T) {
		t.Parallel()

		w := doRequest(networkRouter(&mockNetworkService{}, &mockWarmer{full: true}), http.MethodPost, "/network/warm", `{"person_ids":[1]}`)

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}

		if body := decodeError(t, w); body.Code != api.ErrCodeUnavailable {
			t.Errorf("code = %q, want %q", body.Code, api.ErrCodeUnavailable)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		w := doRequest(networkRouter(&mockNetworkService{}, nil), http.MethodPost, "/network/warm", `{"person_ids":[1]}`)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestPeopleGet(t *testing.T) {
	t.Parallel()

	svc := &mockNetworkService{
		personFn: func(_ context.Context, id int64) (*models.PersonNode, error) {
			if id != 1762 {
				return nil, models.PersonNotFoundError(id)
			}

			return &models.PersonNode{ID: id, Label: "王安石", Name: "Wang Anshi"}, nil
		},
	}

	h := api.NewPeopleHandler(svc, testLogger())
	r := gin.New()
	r.GET("/people/:id", h.Get)

	w := doRequest(r, http.MethodGet, "/people/1762", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var person models.PersonNode
	if err := json.Unmarshal(w.Body.Bytes(), &person); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if person.Label != "王安石" {
		t.Errorf("person = %+v", person)
	}

	if w := doRequest(r, http.MethodGet, "/people/7", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown person: expected 404, got %d", w.Code)
	}
}
