// Package pipeline ingests a batch of bar chart exports concurrently, reporting
// failures per file so the rest of the batch still succeeds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
	"github.com/couchcryptid/ebird-barchart/internal/observability"
)

// Extractor reads one raw export.
type Extractor interface {
	Extract(ctx context.Context, path string) (domain.RawFile, error)
}

// Transformer converts a raw export into a bar chart.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawFile) (*domain.Barchart, error)
}

// FileError records why one file failed to ingest.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// Result is the outcome of a batch. Barcharts keep the order of the input
// paths, skipping failures.
type Result struct {
	Barcharts []*domain.Barchart
	Failed    []FileError
}

// Pipeline orchestrates the extract-transform loop over a batch of paths.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	logger      *slog.Logger
	metrics     *observability.Metrics
	concurrency int
}

// New creates a Pipeline with the given stages and observability. At most
// concurrency files are processed at once.
func New(e Extractor, t Transformer, logger *slog.Logger, metrics *observability.Metrics, concurrency int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		logger:      logger,
		metrics:     metrics,
		concurrency: max(concurrency, 1),
	}
}

// Run ingests every path. A failing file is logged, counted, and reported in
// Result.Failed without affecting the others. Run returns an error only when
// ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, paths []string) (Result, error) {
	start := time.Now()
	p.logger.Info("ingest started", "files", len(paths), "concurrency", p.concurrency)

	barcharts := make([]*domain.Barchart, len(paths))
	failures := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			barcharts[i], failures[i] = p.processFile(ctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.Info("ingest stopping", "reason", err)
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := p.collect(paths, barcharts, failures)
	p.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("ingest finished",
		"ingested", len(res.Barcharts),
		"failed", len(res.Failed),
		"duration", time.Since(start),
	)
	return res, nil
}

// processFile runs one extract-transform cycle.
func (p *Pipeline) processFile(ctx context.Context, path string) (*domain.Barchart, error) {
	raw, err := p.extractor.Extract(ctx, path)
	if err != nil {
		p.fail(path, observability.ReasonRead, err)
		return nil, err
	}
	p.metrics.FilesRead.Inc()

	bc, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		p.fail(path, failureReason(err), err)
		return nil, err
	}
	p.metrics.TaxaIngested.Observe(float64(len(bc.Taxa())))
	return bc, nil
}

func (p *Pipeline) fail(path, reason string, err error) {
	p.logger.Warn("ingest failed, skipping file", "path", path, "reason", reason, "error", err)
	p.metrics.IngestErrors.WithLabelValues(reason).Inc()
}

func (p *Pipeline) collect(paths []string, barcharts []*domain.Barchart, failures []error) Result {
	var res Result
	seen := make(map[string]string, len(paths))
	for i, path := range paths {
		if failures[i] != nil {
			res.Failed = append(res.Failed, FileError{Path: path, Err: failures[i]})
			continue
		}
		bc := barcharts[i]
		if prev, ok := seen[bc.LocationID()]; ok {
			p.logger.Warn("duplicate location id, later file wins",
				"location_id", bc.LocationID(),
				"path", path,
				"previous_path", prev,
			)
		}
		seen[bc.LocationID()] = path
		res.Barcharts = append(res.Barcharts, bc)
	}
	return res
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedFilename):
		return observability.ReasonFilename
	case errors.Is(err, domain.ErrMalformedBody):
		return observability.ReasonBody
	case errors.Is(err, domain.ErrNameLookup):
		return observability.ReasonName
	default:
		return observability.ReasonOther
	}
}
