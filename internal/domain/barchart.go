package domain

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Barchart is the normalized observation data of one hotspot export.
// It is immutable once built; accessors return copies.
type Barchart struct {
	info        FileInfo
	hotspotName string

	sampleSizes  []int
	observations map[string][]int
	species      map[string]struct{}
	otherTaxa    map[string]struct{}
}

// NewBarchart parses a raw export and resolves its hotspot name. The namer is
// called once, after the file has parsed successfully. A nil namer names the
// hotspot after its location ID.
func NewBarchart(ctx context.Context, raw RawFile, namer HotspotNamer) (*Barchart, error) {
	info, err := ParseFilename(raw.Stem)
	if err != nil {
		return nil, err
	}
	body, err := ParseBody(raw.Text)
	if err != nil {
		return nil, err
	}

	if namer == nil {
		namer = LocationIDNamer{}
	}
	name, err := namer.HotspotName(ctx, info.LocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNameLookup, info.LocationID, err)
	}

	return newBarchart(info, name, body), nil
}

func newBarchart(info FileInfo, name string, body Body) *Barchart {
	bc := &Barchart{
		info:         info,
		hotspotName:  name,
		sampleSizes:  body.SampleSizes,
		observations: body.Observations,
		species:      make(map[string]struct{}),
		otherTaxa:    make(map[string]struct{}),
	}
	for label := range bc.observations {
		if IsSpecies(label) {
			bc.species[label] = struct{}{}
		} else {
			bc.otherTaxa[label] = struct{}{}
		}
	}
	return bc
}

// LocationID returns the eBird location ID, e.g. "L109516".
func (b *Barchart) LocationID() string { return b.info.LocationID }

// HotspotName returns the name resolved when the barchart was built.
func (b *Barchart) HotspotName() string { return b.hotspotName }

// Info returns the location and coverage encoded in the source filename.
func (b *Barchart) Info() FileInfo { return b.info }

// SampleSizes returns the number of checklists per period.
func (b *Barchart) SampleSizes() []int { return slices.Clone(b.sampleSizes) }

// Observations returns the estimated sighting counts per period for a label.
// Unknown labels yield all zeros.
func (b *Barchart) Observations(label string) []int {
	obs, ok := b.observations[label]
	if !ok {
		return make([]int, Periods)
	}
	return slices.Clone(obs)
}

// HasTaxon reports whether the export contains a row for label.
func (b *Barchart) HasTaxon(label string) bool {
	_, ok := b.observations[label]
	return ok
}

// IsSpecies reports whether label is one of this export's full species.
func (b *Barchart) IsSpecies(label string) bool {
	_, ok := b.species[label]
	return ok
}

// Taxa returns every label in the export, sorted.
func (b *Barchart) Taxa() []string { return slices.Sorted(maps.Keys(b.observations)) }

// Species returns the labels classified as full species, sorted.
func (b *Barchart) Species() []string { return slices.Sorted(maps.Keys(b.species)) }

// OtherTaxa returns the labels classified as other taxa, sorted.
func (b *Barchart) OtherTaxa() []string { return slices.Sorted(maps.Keys(b.otherTaxa)) }

// SpeciesObservations returns a copy of the observation rows of full species.
func (b *Barchart) SpeciesObservations() map[string][]int {
	return b.filterObservations(b.species)
}

// OtherTaxaObservations returns a copy of the observation rows of other taxa.
func (b *Barchart) OtherTaxaObservations() map[string][]int {
	return b.filterObservations(b.otherTaxa)
}

func (b *Barchart) filterObservations(set map[string]struct{}) map[string][]int {
	out := make(map[string][]int, len(set))
	for label := range set {
		out[label] = slices.Clone(b.observations[label])
	}
	return out
}

// Summarize computes the occurrence rate of every species over the given
// periods. Other taxa are included only when includeOtherTaxa is set. Periods
// may repeat and be in any order; each occurrence counts. Labels with a rate of
// exactly zero are omitted.
func (b *Barchart) Summarize(periods []int, includeOtherTaxa bool) (map[string]float64, error) {
	if err := validatePeriods(periods); err != nil {
		return nil, err
	}

	samples := make([]int, len(periods))
	for i, p := range periods {
		samples[i] = b.sampleSizes[p]
	}

	summary := make(map[string]float64)
	counts := make([]int, len(periods))
	for label, obs := range b.observations {
		if _, ok := b.species[label]; !ok && !includeOtherTaxa {
			continue
		}
		for i, p := range periods {
			counts[i] = obs[p]
		}
		rate, err := WeightedAverage(samples, counts)
		if err != nil {
			return nil, err
		}
		if rate != 0 {
			summary[label] = rate
		}
	}
	return summary, nil
}

func (b *Barchart) String() string {
	return fmt.Sprintf("Barchart(%s %s)", b.info.LocationID, b.hotspotName)
}

// WeightedAverage returns sum(counts)/sum(sampleSizes) rounded to 5 decimal
// places, or 0 when there are no samples.
func WeightedAverage(sampleSizes, counts []int) (float64, error) {
	if len(sampleSizes) != len(counts) {
		return 0, fmt.Errorf("%w: %d sample sizes, %d observations", ErrLengthMismatch, len(sampleSizes), len(counts))
	}
	var samples, obs int
	for i := range sampleSizes {
		samples += sampleSizes[i]
		obs += counts[i]
	}
	if samples == 0 {
		return 0, nil
	}
	return RoundRate(float64(obs) / float64(samples)), nil
}

// RoundRate rounds an occurrence rate to 5 decimal places. Ties on the exact
// binary value round half to even, as they do for count estimation.
func RoundRate(rate float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(rate, 'f', 5, 64), 64)
	return r
}
