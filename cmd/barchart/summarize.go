package main

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
	"github.com/couchcryptid/ebird-barchart/internal/output"
	"github.com/couchcryptid/ebird-barchart/internal/summary"
	"github.com/couchcryptid/ebird-barchart/internal/taxonomy"
)

var errAllExcluded = errors.New("every hotspot is excluded")

type summarizeOptions struct {
	startMonth  int
	endMonth    int
	startPeriod int
	endPeriod   int
	otherTaxa   bool
	exclude     []string
	combined    bool
	limit       int
	json        bool
}

func newSummarizeCmd(a *app) *cobra.Command {
	var o summarizeOptions
	cmd := &cobra.Command{
		Use:   "summarize FILE|DIR...",
		Short: "Show the chance of recording each species per hotspot",
		Long: `Summarize reports, for each species, the fraction of checklists that recorded it
over the selected periods. Each month has four periods numbered from 0 (early
January) to 47 (late December). A range whose end precedes its start wraps
around the new year.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			periods, err := o.periods(cmd)
			if err != nil {
				return err
			}

			barcharts, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}

			s := summary.New("summary", barcharts)
			for _, id := range o.exclude {
				if err := s.Deactivate(id); err != nil {
					return err
				}
			}

			report, err := buildReport(s, periods, o.otherTaxa, o.combined)
			if err != nil {
				return err
			}
			if o.json {
				return report.writeJSON(a.printer.Out())
			}

			var tax *taxonomy.Taxonomy
			if a.cfg.TaxonomyPath != "" {
				if tax, err = taxonomy.LoadFile(a.cfg.TaxonomyPath); err != nil {
					return err
				}
				a.logger.Debug("taxonomy loaded", "path", a.cfg.TaxonomyPath, "taxa", tax.Len())
			}

			a.printer.Header(fmt.Sprintf("%s to %s, %d of %d hotspots",
				periodLabel(periods[0]), periodLabel(periods[len(periods)-1]), len(report.order), s.Len()))
			report.render(a.printer.Out(), report.rows(tax, o.limit))
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.startMonth, "start-month", 1, "first month (1-12)")
	f.IntVar(&o.endMonth, "end-month", 12, "last month (1-12)")
	f.IntVar(&o.startPeriod, "start-period", 0, "first period (0-47)")
	f.IntVar(&o.endPeriod, "end-period", domain.Periods-1, "last period (0-47)")
	f.BoolVar(&o.otherTaxa, "other-taxa", false, "include non-species taxa such as spuhs and hybrids")
	f.StringSliceVar(&o.exclude, "exclude", nil, "location ID to leave out (repeatable)")
	f.BoolVar(&o.combined, "combined", false, "add the chance of recording each species at any active hotspot")
	f.IntVar(&o.limit, "limit", 0, "show at most this many rows (0 shows all)")
	f.BoolVar(&o.json, "json", false, "print the summary as JSON")
	cmd.MarkFlagsMutuallyExclusive("start-month", "start-period")
	cmd.MarkFlagsMutuallyExclusive("start-month", "end-period")
	cmd.MarkFlagsMutuallyExclusive("end-month", "start-period")
	cmd.MarkFlagsMutuallyExclusive("end-month", "end-period")
	return cmd
}

// periods resolves the period flags. Months are used unless a period flag is
// given; the default covers the whole year.
func (o *summarizeOptions) periods(cmd *cobra.Command) ([]int, error) {
	if o.limit < 0 {
		return nil, fmt.Errorf("invalid --limit %d: must not be negative", o.limit)
	}
	if cmd.Flags().Changed("start-period") || cmd.Flags().Changed("end-period") {
		for _, p := range []int{o.startPeriod, o.endPeriod} {
			if p < 0 || p >= domain.Periods {
				return nil, fmt.Errorf("%w: %d", domain.ErrInvalidPeriod, p)
			}
		}
		return domain.PeriodRange(o.startPeriod, o.endPeriod), nil
	}
	return domain.MonthRange(time.Month(o.startMonth), time.Month(o.endMonth))
}

// periodLabel names a period by month and week, e.g. "Apr wk 2".
func periodLabel(p int) string {
	return fmt.Sprintf("%s wk %d", domain.MonthOf(p).String()[:3], p%4+1)
}

// report holds the rates of the active hotspots.
type report struct {
	Periods  []int                         `json:"periods"`
	Hotspots map[string]string             `json:"hotspots"`
	Rates    map[string]map[string]float64 `json:"rates"`
	Combined map[string]float64            `json:"combined,omitempty"`

	order []string // active location IDs, sorted
}

func buildReport(s *summary.Summarizer, periods []int, otherTaxa, combined bool) (*report, error) {
	active := s.ActiveHotspots()
	if len(active) == 0 {
		return nil, errAllExcluded
	}

	dict, err := s.BuildSummaryDict(periods, otherTaxa)
	if err != nil {
		return nil, err
	}
	names := s.HotspotNames()

	r := &report{
		Periods:  periods,
		Hotspots: make(map[string]string, len(active)),
		Rates:    make(map[string]map[string]float64, len(active)),
		order:    active,
	}
	for _, id := range active {
		r.Hotspots[id] = names[id]
		r.Rates[id] = dict[id]
	}
	if combined {
		if r.Combined, err = s.CombinedSummary(periods, otherTaxa); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// score ranks a taxon when no taxonomy is available: the combined rate when
// present, otherwise the best rate at any hotspot.
func (r *report) score(taxon string) float64 {
	if r.Combined != nil {
		return r.Combined[taxon]
	}
	var best float64
	for _, id := range r.order {
		best = max(best, r.Rates[id][taxon])
	}
	return best
}

// rows returns the taxa to show. With a taxonomy they are in taxonomic order,
// otherwise highest rate first.
func (r *report) rows(tax *taxonomy.Taxonomy, limit int) []string {
	set := make(map[string]struct{})
	for _, rates := range r.Rates {
		for taxon := range rates {
			set[taxon] = struct{}{}
		}
	}
	taxa := slices.Collect(maps.Keys(set))

	if tax != nil {
		tax.Sort(taxa)
	} else {
		slices.SortFunc(taxa, func(a, b string) int {
			return cmp.Or(cmp.Compare(r.score(b), r.score(a)), cmp.Compare(a, b))
		})
	}
	if limit > 0 && len(taxa) > limit {
		taxa = taxa[:limit]
	}
	return taxa
}

func (r *report) render(w io.Writer, taxa []string) {
	header := []string{"Taxon"}
	for _, id := range r.order {
		header = append(header, r.Hotspots[id])
	}
	if r.Combined != nil {
		header = append(header, "Combined")
	}

	tbl := output.NewTable(w, header)
	for _, taxon := range taxa {
		row := []string{taxon}
		for _, id := range r.order {
			rate, ok := r.Rates[id][taxon]
			row = append(row, output.Rate(rate, ok))
		}
		if r.Combined != nil {
			rate, ok := r.Combined[taxon]
			row = append(row, output.Rate(rate, ok))
		}
		tbl.AddRow(row)
	}
	tbl.Render()
}

func (r *report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
