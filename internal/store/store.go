// Package store is the relation repository over the CBDB tables.
//
// It translates person-ID sets into minimal edge and node projections for
// graph exploration without loading full biographical records. Every query
// is parameterized; ID lists are chunked to stay inside the driver's
// variable limit.
package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/dbpool"
	"github.com/cbdb-network/cbdbnet/internal/metrics"
)

const defaultQueryTimeout = 30 * time.Second

// maxInParams caps the number of IDs bound into a single IN list.
const maxInParams = 500

// Base contains shared dependencies for all stores.
type Base struct {
	DB  *dbpool.DB
	Log *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// observe records a query duration under the given name.
func observe(query string, start time.Time) {
	metrics.DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}

	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// idArgs converts ids into query arguments, repeated times times.
func idArgs(ids []int64, times int) []any {
	args := make([]any, 0, len(ids)*times)
	for range times {
		for _, id := range ids {
			args = append(args, id)
		}
	}

	return args
}

// chunkIDs sorts and dedupes ids, then splits them into chunks of at most size.
func chunkIDs(ids []int64, size int) [][]int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	return slices.Collect(slices.Chunk(sorted, size))
}

// containsID reports whether id is in the sorted slice ids.
func containsID(ids []int64, id int64) bool {
	_, ok := slices.BinarySearch(ids, id)

	return ok
}

// inAnyChunk reports whether id is in any of the sorted chunks.
func inAnyChunk(chunks [][]int64, id int64) bool {
	for _, c := range chunks {
		if len(c) > 0 && id >= c[0] && id <= c[len(c)-1] {
			return containsID(c, id)
		}
	}

	return false
}
