package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/ebird-barchart/internal/adapter/ebird"
	"github.com/couchcryptid/ebird-barchart/internal/adapter/fs"
	"github.com/couchcryptid/ebird-barchart/internal/adapter/sqlite"
	"github.com/couchcryptid/ebird-barchart/internal/config"
	"github.com/couchcryptid/ebird-barchart/internal/domain"
	"github.com/couchcryptid/ebird-barchart/internal/observability"
	"github.com/couchcryptid/ebird-barchart/internal/output"
	"github.com/couchcryptid/ebird-barchart/internal/pipeline"
)

var errNoBarcharts = errors.New("no bar charts loaded")

// app carries the state shared by every subcommand. The config-derived
// fields are populated by the root command's pre-run hook.
type app struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
	clock   clockwork.Clock

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	printer *output.Printer
	store   *sqlite.Store
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, clock: clockwork.NewRealClock()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "barchart",
		Short: "Summarize eBird bar chart exports",
		Long: `barchart reads eBird bar chart exports (ebird_<location>__<years>_<months>_barchart.txt)
and reports how likely each species is to be seen at one or more hotspots.

Example usage:
  barchart hotspots exports/                      # List the hotspots in a directory
  barchart summarize exports/ --start-month 4 --end-month 5
  barchart summarize exports/ --combined --limit 20
  barchart names --prune                          # Drop expired cached hotspot names`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newHotspotsCmd(a), newSummarizeCmd(a), newNamesCmd(a))
	return root
}

// run executes the command line and releases what the subcommand opened,
// whether or not it succeeded.
func run(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.finish())
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, a.errOut)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.metrics = observability.NewMetrics()
	a.printer = output.NewPrinter(a.out, a.errOut, output.ResolveColors(a.noColor))
	return nil
}

// finish closes the name store and writes the metrics textfile.
func (a *app) finish() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.metrics != nil && a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		} else {
			a.logger.Debug("metrics written", "path", a.cfg.MetricsFile)
		}
	}
	return errors.Join(errs...)
}

// openStore opens the on-disk name cache. It returns nil when the cache is
// disabled.
func (a *app) openStore(ctx context.Context) (*sqlite.Store, error) {
	if a.store != nil || a.cfg.NameCachePath == "" {
		return a.store, nil
	}
	store, err := sqlite.Open(ctx, a.cfg.NameCachePath)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// namer builds the hotspot name chain: in-memory LRU, then the on-disk cache,
// then the eBird hotspot page. Offline mode names hotspots by location ID.
func (a *app) namer(ctx context.Context) (domain.HotspotNamer, error) {
	if a.cfg.EBirdOffline {
		a.logger.Info("ebird lookups disabled, using location ids as names")
		return domain.LocationIDNamer{}, nil
	}

	var inner domain.HotspotNamer = ebird.NewClient(a.cfg.EBirdHotspotURL, a.cfg.EBirdTimeout, a.metrics, a.logger)

	store, err := a.openStore(ctx)
	if err != nil {
		a.logger.Warn("name cache unavailable", "path", a.cfg.NameCachePath, "error", err)
	} else if store != nil {
		inner = sqlite.NewCachedNamer(inner, store, a.cfg.NameCacheTTL, a.clock, a.metrics, a.logger)
		a.logger.Debug("name cache enabled", "path", store.Path(), "ttl", a.cfg.NameCacheTTL)
	}

	return ebird.NewCachedNamer(inner, a.cfg.NameCacheSize, a.metrics)
}

// load ingests every export named by args. Failed files are reported as
// warnings, or as errors when nothing could be loaded, which also fails the
// command.
func (a *app) load(ctx context.Context, args []string) ([]*domain.Barchart, error) {
	paths, err := fs.Expand(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no exports found", errNoBarcharts)
	}

	namer, err := a.namer(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(fs.NewExtractor(), pipeline.NewTransformer(namer, a.logger), a.logger, a.metrics, a.cfg.IngestConcurrency)
	res, err := p.Run(ctx, paths)
	if err != nil {
		return nil, err
	}

	notify := a.printer.Warning
	if len(res.Barcharts) == 0 {
		notify = a.printer.Error
	}
	for _, f := range res.Failed {
		notify("%v", f)
	}
	if len(res.Barcharts) == 0 {
		return nil, fmt.Errorf("%w: %d of %d files failed", errNoBarcharts, len(res.Failed), len(paths))
	}
	return res.Barcharts, nil
}
