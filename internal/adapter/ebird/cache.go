package ebird

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
	"github.com/couchcryptid/ebird-barchart/internal/observability"
)

// CachedNamer wraps a HotspotNamer with an in-memory LRU cache. Concurrent
// lookups of the same location share one call to the inner namer.
type CachedNamer struct {
	inner   domain.HotspotNamer
	cache   *lru.Cache[string, string]
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCachedNamer creates a cache decorator around a namer.
func NewCachedNamer(inner domain.HotspotNamer, maxEntries int, metrics *observability.Metrics) (*CachedNamer, error) {
	cache, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create name cache: %w", err)
	}
	return &CachedNamer{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}, nil
}

func (c *CachedNamer) HotspotName(ctx context.Context, locationID string) (string, error) {
	if name, ok := c.cache.Get(locationID); ok {
		c.metrics.NameLookups.WithLabelValues(observability.SourceMemory, observability.OutcomeHit).Inc()
		return name, nil
	}
	c.metrics.NameLookups.WithLabelValues(observability.SourceMemory, observability.OutcomeMiss).Inc()

	// The shared lookup outlives any one caller's cancellation; the inner
	// namer's own timeout still bounds it.
	ch := c.group.DoChan(locationID, func() (any, error) {
		name, err := c.inner.HotspotName(context.WithoutCancel(ctx), locationID)
		if err != nil {
			return "", err
		}
		// Only cache non-empty names so a blank response can be retried.
		if name != "" {
			c.cache.Add(locationID, name)
		}
		return name, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Len returns the number of cached names.
func (c *CachedNamer) Len() int { return c.cache.Len() }
