package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cbdb-network/cbdbnet/internal/api"
	"github.com/cbdb-network/cbdbnet/internal/db"
	"github.com/cbdb-network/cbdbnet/internal/dbpool"
)

func openTestDB(t *testing.T, migrate bool) *dbpool.DB {
	t.Helper()

	ctx := context.Background()

	database, err := dbpool.Open(ctx, filepath.Join(t.TempDir(), "cbdb.db"), dbpool.Options{MaxConns: 1})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}

	t.Cleanup(func() { database.Close() }) //nolint:errcheck // test cleanup

	if migrate {
		if err := db.RunMigrations(ctx, database, testLogger(), db.Migrations); err != nil {
			t.Fatalf("migrating: %v", err)
		}
	}

	return database
}

func TestLiveness_ReturnsOK(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(nil, nil, testLogger(), "test-v1")

	r := gin.New()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}

	if body["version"] != "test-v1" {
		t.Errorf("expected version 'test-v1', got %v", body["version"])
	}

	if body["database"] != "not_configured" {
		t.Errorf("expected database 'not_configured', got %v", body["database"])
	}
}

func TestLiveness_ReportsDialect(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(openTestDB(t, false), nil, testLogger(), "dev")

	r := gin.New()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["database"] != "connected" || body["dialect"] != "sqlite" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		migrate    bool
		noDB       bool
		wantStatus int
		wantSchema string
	}{
		{name: "migrated", migrate: true, wantStatus: http.StatusOK, wantSchema: "ok"},
		{name: "missing tables", migrate: false, wantStatus: http.StatusServiceUnavailable, wantSchema: "error"},
		{name: "no database", noDB: true, wantStatus: http.StatusServiceUnavailable, wantSchema: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var database *dbpool.DB
			if !tt.noDB {
				database = openTestDB(t, tt.migrate)
			}

			h := api.NewHealthHandler(database, nil, testLogger(), "dev")

			r := gin.New()
			r.GET("/ready", h.Readiness)

			w := doRequest(r, http.MethodGet, "/ready", "")

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if body.Checks["schema"] != tt.wantSchema {
				t.Errorf("schema check = %q, want %q", body.Checks["schema"], tt.wantSchema)
			}
		})
	}
}
