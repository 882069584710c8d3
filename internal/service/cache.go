package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/cbdb-network/cbdbnet/internal/metrics"
	"github.com/cbdb-network/cbdbnet/internal/models"
)

// sharedComputeTimeout bounds a coalesced computation, which outlives the
// cancellation of whichever caller started it.
const sharedComputeTimeout = 2 * time.Minute

// resultCache holds finished network results. The CBDB store is read-only, so
// entries only leave by TTL or eviction. Cached results are shared and must
// not be mutated by callers.
type resultCache struct {
	lru   *expirable.LRU[string, *models.NetworkResult]
	group singleflight.Group
}

// newResultCache returns a cache, or nil when size <= 0.
func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 {
		return nil
	}

	return &resultCache{lru: expirable.NewLRU[string, *models.NetworkResult](size, nil, ttl)}
}

func (c *resultCache) get(key string) (*models.NetworkResult, bool) {
	if c == nil {
		return nil, false
	}

	res, ok := c.lru.Get(key)
	if ok {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	return res, ok
}

func (c *resultCache) add(key string, res *models.NetworkResult) {
	if c == nil {
		return
	}

	c.lru.Add(key, res)
}

// do coalesces concurrent computations of the same key. The shared
// computation runs detached from any single caller's cancellation; each caller
// stops waiting when its own ctx is done.
func (c *resultCache) do(
	ctx context.Context,
	key string,
	fn func(context.Context) (*models.NetworkResult, error),
) (*models.NetworkResult, error) {
	if c == nil {
		return fn(ctx)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedComputeTimeout)
		defer cancel()

		return fn(shared)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			metrics.CacheRequestsTotal.WithLabelValues("coalesced").Inc()
		}

		if r.Err != nil {
			return nil, r.Err
		}

		return r.Val.(*models.NetworkResult), nil //nolint:forcetypeassert // fn only returns *models.NetworkResult.
	}
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}

	return c.lru.Len()
}

// cacheKey renders every request field that influences the result.
func cacheKey(seeds []int64, depth int, types []models.RelationType, req models.ExploreRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "s=%v;d=%d;t=", seeds, depth)

	for i, t := range types {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(string(t))
	}

	centralityFor := slices.Clone(req.CentralityFor)
	slices.Sort(centralityFor)

	fmt.Fprintf(&b, ";r=%t;p=%d;c=%t;cf=%v;x=%t",
		req.IncludeReciprocal, req.EffectiveRadius(), req.IncludeCentrality,
		slices.Compact(centralityFor), req.ExactBridges)

	return b.String()
}
