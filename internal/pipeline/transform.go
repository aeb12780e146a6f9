package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
)

// BarchartTransformer implements Transformer using the domain parser, resolving
// hotspot names through the configured namer.
type BarchartTransformer struct {
	namer  domain.HotspotNamer
	logger *slog.Logger
}

// NewTransformer creates a BarchartTransformer. Pass a nil namer to name
// hotspots after their location IDs.
func NewTransformer(namer domain.HotspotNamer, logger *slog.Logger) *BarchartTransformer {
	return &BarchartTransformer{
		namer:  namer,
		logger: logger,
	}
}

func (t *BarchartTransformer) Transform(ctx context.Context, raw domain.RawFile) (*domain.Barchart, error) {
	bc, err := domain.NewBarchart(ctx, raw, t.namer)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("bar chart parsed",
		"path", raw.Path,
		"location_id", bc.LocationID(),
		"hotspot", bc.HotspotName(),
		"species", len(bc.Species()),
		"other_taxa", len(bc.OtherTaxa()),
	)
	return bc, nil
}
