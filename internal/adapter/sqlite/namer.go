package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
	"github.com/couchcryptid/ebird-barchart/internal/observability"
)

// CachedNamer wraps a HotspotNamer with the on-disk Store. Entries older than
// ttl are refetched; a ttl of zero never expires them. When a refetch fails
// the stale name is served instead.
//
// Store failures are logged and fall through to the inner namer.
type CachedNamer struct {
	inner   domain.HotspotNamer
	store   *Store
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedNamer creates a persistent cache decorator around a namer.
func NewCachedNamer(inner domain.HotspotNamer, store *Store, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *CachedNamer {
	return &CachedNamer{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedNamer) HotspotName(ctx context.Context, locationID string) (string, error) {
	entry, ok, err := c.store.Get(ctx, locationID)
	if err != nil {
		c.logger.Warn("name cache read failed", "location_id", locationID, "error", err)
	}
	if ok && !c.expired(entry) {
		c.metrics.NameLookups.WithLabelValues(observability.SourceDisk, observability.OutcomeHit).Inc()
		return entry.Name, nil
	}
	c.metrics.NameLookups.WithLabelValues(observability.SourceDisk, observability.OutcomeMiss).Inc()

	name, err := c.inner.HotspotName(ctx, locationID)
	if err != nil {
		if ok {
			c.logger.Warn("hotspot name refresh failed, using cached name",
				"location_id", locationID,
				"fetched_at", entry.FetchedAt,
				"error", err,
			)
			return entry.Name, nil
		}
		return "", err
	}
	if name == "" {
		return name, nil
	}

	if err := c.store.Put(ctx, Entry{LocationID: locationID, Name: name, FetchedAt: c.clock.Now()}); err != nil {
		c.logger.Warn("name cache write failed", "location_id", locationID, "error", err)
	}
	return name, nil
}

func (c *CachedNamer) expired(e Entry) bool {
	return c.ttl > 0 && c.clock.Since(e.FetchedAt) > c.ttl
}

// Prune deletes entries older than the TTL. It is a no-op without a TTL.
func (c *CachedNamer) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	return c.store.Prune(ctx, c.clock.Now().Add(-c.ttl))
}
