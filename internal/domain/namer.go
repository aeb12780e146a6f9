package domain

import "context"

// HotspotNamer resolves an opaque eBird location ID to its human-readable
// hotspot name. Implementations are expected to memoize; Barchart construction
// calls it exactly once per file.
type HotspotNamer interface {
	HotspotName(ctx context.Context, locationID string) (string, error)
}

// NamerFunc adapts a plain function to HotspotNamer.
type NamerFunc func(ctx context.Context, locationID string) (string, error)

// HotspotName calls f(ctx, locationID).
func (f NamerFunc) HotspotName(ctx context.Context, locationID string) (string, error) {
	return f(ctx, locationID)
}

// LocationIDNamer names every hotspot after its location ID. It is the
// fallback when name lookups are disabled.
type LocationIDNamer struct{}

// HotspotName returns locationID unchanged.
func (LocationIDNamer) HotspotName(_ context.Context, locationID string) (string, error) {
	return locationID, nil
}
