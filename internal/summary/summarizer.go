// Package summary aggregates bar charts from several hotspots and computes
// per-hotspot and combined occurrence-rate summaries.
package summary

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
)

// ErrUnknownLocation is returned when an operation names a location ID that is
// not part of the Summarizer.
var ErrUnknownLocation = errors.New("unknown location")

// Summarizer holds a fixed set of hotspot bar charts and a mutable set of
// active hotspots. It is not safe for concurrent activation changes.
type Summarizer struct {
	name         string
	locationIDs  []string
	hotspotNames map[string]string
	barcharts    map[string]*domain.Barchart
	active       map[string]struct{}

	allSpecies   map[string]struct{}
	allOtherTaxa map[string]struct{}
}

// New builds a Summarizer over barcharts. Every hotspot starts active.
// Duplicate location IDs are a caller error; the last one wins.
func New(name string, barcharts []*domain.Barchart) *Summarizer {
	s := &Summarizer{
		name:         name,
		hotspotNames: make(map[string]string, len(barcharts)),
		barcharts:    make(map[string]*domain.Barchart, len(barcharts)),
		active:       make(map[string]struct{}, len(barcharts)),
		allSpecies:   make(map[string]struct{}),
		allOtherTaxa: make(map[string]struct{}),
	}
	for _, bc := range barcharts {
		id := bc.LocationID()
		s.barcharts[id] = bc
		s.hotspotNames[id] = bc.HotspotName()
		s.active[id] = struct{}{}
		for _, label := range bc.Species() {
			s.allSpecies[label] = struct{}{}
		}
		for _, label := range bc.OtherTaxa() {
			s.allOtherTaxa[label] = struct{}{}
		}
	}
	s.locationIDs = slices.Sorted(maps.Keys(s.barcharts))
	return s
}

// Name returns the display label given at construction.
func (s *Summarizer) Name() string { return s.name }

// Len returns the number of hotspots.
func (s *Summarizer) Len() int { return len(s.locationIDs) }

// LocationIDs returns every hotspot's location ID, sorted.
func (s *Summarizer) LocationIDs() []string { return slices.Clone(s.locationIDs) }

// HotspotNames returns location ID → hotspot name for every hotspot.
func (s *Summarizer) HotspotNames() map[string]string { return maps.Clone(s.hotspotNames) }

// Barchart returns the bar chart for a location ID.
func (s *Summarizer) Barchart(locationID string) (*domain.Barchart, bool) {
	bc, ok := s.barcharts[locationID]
	return bc, ok
}

// Activate puts a hotspot back in play. Activating an active hotspot is a no-op.
func (s *Summarizer) Activate(locationID string) error {
	if _, ok := s.barcharts[locationID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, locationID)
	}
	s.active[locationID] = struct{}{}
	return nil
}

// Deactivate takes a hotspot out of play. Deactivating an inactive hotspot is
// a no-op.
func (s *Summarizer) Deactivate(locationID string) error {
	if _, ok := s.barcharts[locationID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, locationID)
	}
	delete(s.active, locationID)
	return nil
}

// IsActive reports whether a hotspot is in play.
func (s *Summarizer) IsActive(locationID string) bool {
	_, ok := s.active[locationID]
	return ok
}

// ActiveHotspots returns the location IDs currently in play, sorted.
func (s *Summarizer) ActiveHotspots() []string {
	return slices.Sorted(maps.Keys(s.active))
}

// AllSpecies returns the union of species across every hotspot, sorted.
// Activation does not affect it.
func (s *Summarizer) AllSpecies() []string { return slices.Sorted(maps.Keys(s.allSpecies)) }

// AllOtherTaxa returns the union of other taxa across every hotspot, sorted.
func (s *Summarizer) AllOtherTaxa() []string { return slices.Sorted(maps.Keys(s.allOtherTaxa)) }

// ActiveSpecies returns the union of species recorded at active hotspots,
// sorted.
func (s *Summarizer) ActiveSpecies() []string {
	species := make(map[string]struct{})
	for id := range s.active {
		for _, label := range s.barcharts[id].Species() {
			species[label] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(species))
}

// BuildSummaryDict summarizes every hotspot, active or not, over periods.
// A label missing from a hotspot's summary had a zero rate there.
func (s *Summarizer) BuildSummaryDict(periods []int, includeOtherTaxa bool) (map[string]map[string]float64, error) {
	out := make(map[string]map[string]float64, len(s.locationIDs))
	for _, id := range s.locationIDs {
		summary, err := s.barcharts[id].Summarize(periods, includeOtherTaxa)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", id, err)
		}
		out[id] = summary
	}
	return out, nil
}

// CombinedSummary returns, per label, the probability of recording it at one
// or more of the active hotspots over periods. A hotspot without the label
// contributes a rate of zero. Results are rounded to 5 decimal places and
// zeros are omitted.
func (s *Summarizer) CombinedSummary(periods []int, includeOtherTaxa bool) (map[string]float64, error) {
	perSite := make([]map[string]float64, 0, len(s.active))
	labels := make(map[string]struct{})
	for _, id := range s.ActiveHotspots() {
		summary, err := s.barcharts[id].Summarize(periods, includeOtherTaxa)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", id, err)
		}
		perSite = append(perSite, summary)
		for label := range summary {
			labels[label] = struct{}{}
		}
	}

	combined := make(map[string]float64, len(labels))
	rates := make([]float64, len(perSite))
	for label := range labels {
		for i, summary := range perSite {
			rates[i] = summary[label]
		}
		if p := domain.RoundRate(CombinedProbability(rates)); p != 0 {
			combined[label] = p
		}
	}
	return combined, nil
}

// CombinedProbability returns the probability that at least one of several
// independent sites yields a sighting: 1 - Π(1 - rate). It returns 0 for no
// rates.
func CombinedProbability(rates []float64) float64 {
	if len(rates) == 0 {
		return 0
	}
	miss := 1.0
	for _, r := range rates {
		miss *= 1 - r
	}
	return 1 - miss
}
