package summary

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prospectPark = "L109516"
	centralPark  = "L191106"
	jamaicaBay   = "L109145"
)

var hotspotNames = map[string]string{
	prospectPark: "Prospect Park",
	centralPark:  "Central Park",
	jamaicaBay:   "Jamaica Bay Wildlife Refuge",
}

// newTestBarchart builds a bar chart with a uniform sample size and uniform
// frequency per label.
func newTestBarchart(t *testing.T, id string, sample int, freqs map[string]float64) *domain.Barchart {
	t.Helper()

	lines := make([]string, 14)
	samples := make([]string, domain.Periods)
	for i := range samples {
		samples[i] = fmt.Sprint(sample)
	}
	lines = append(lines, "Sample Size:\t"+strings.Join(samples, "\t")+"\t", "")
	for label, f := range freqs {
		row := make([]string, domain.Periods)
		for i := range row {
			row[i] = fmt.Sprint(f)
		}
		lines = append(lines, label+"\t"+strings.Join(row, "\t")+"\t")
	}

	namer := domain.NamerFunc(func(_ context.Context, id string) (string, error) {
		return hotspotNames[id], nil
	})
	raw := domain.RawFile{
		Stem: fmt.Sprintf("ebird_%s__1900_2021_1_12_barchart", id),
		Text: strings.Join(lines, "\n"),
	}
	bc, err := domain.NewBarchart(context.Background(), raw, namer)
	require.NoError(t, err)
	return bc
}

func newTestSummarizer(t *testing.T) *Summarizer {
	t.Helper()
	return New("Brooklyn and Queens", []*domain.Barchart{
		newTestBarchart(t, prospectPark, 10, map[string]float64{
			"Gadwall":   0.5,
			"Wood Duck": 0.2,
			"goose sp.": 0.1,
		}),
		newTestBarchart(t, centralPark, 10, map[string]float64{
			"Gadwall":        0.5,
			"Summer Tanager": 0.3,
		}),
		newTestBarchart(t, jamaicaBay, 20, map[string]float64{
			"Snow Goose":                     0.25,
			"Western x Glaucous-winged Gull": 0.05,
		}),
	})
}

func TestNew(t *testing.T) {
	s := newTestSummarizer(t)

	assert.Equal(t, "Brooklyn and Queens", s.Name())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{jamaicaBay, prospectPark, centralPark}, s.LocationIDs())
	assert.Equal(t, hotspotNames, s.HotspotNames())
	assert.Equal(t, s.LocationIDs(), s.ActiveHotspots())
	assert.Equal(t, []string{"Gadwall", "Snow Goose", "Summer Tanager", "Wood Duck"}, s.AllSpecies())
	assert.Equal(t, []string{"Western x Glaucous-winged Gull", "goose sp."}, s.AllOtherTaxa())
	assert.Equal(t, s.AllSpecies(), s.ActiveSpecies())

	bc, ok := s.Barchart(centralPark)
	require.True(t, ok)
	assert.Equal(t, "Central Park", bc.HotspotName())
	_, ok = s.Barchart("L1")
	assert.False(t, ok)
}

func TestNew_Empty(t *testing.T) {
	s := New("", nil)

	assert.Zero(t, s.Len())
	assert.Empty(t, s.LocationIDs())
	assert.Empty(t, s.ActiveSpecies())

	dict, err := s.BuildSummaryDict(domain.PeriodRange(0, 3), false)
	require.NoError(t, err)
	assert.Empty(t, dict)

	combined, err := s.CombinedSummary(domain.PeriodRange(0, 3), false)
	require.NoError(t, err)
	assert.Empty(t, combined)
}

func TestSummarizer_Deactivate(t *testing.T) {
	s := newTestSummarizer(t)

	require.NoError(t, s.Deactivate(centralPark))
	assert.False(t, s.IsActive(centralPark))
	assert.Equal(t, []string{jamaicaBay, prospectPark}, s.ActiveHotspots())
	assert.NotContains(t, s.ActiveSpecies(), "Summer Tanager")
	assert.Contains(t, s.ActiveSpecies(), "Gadwall", "still recorded at Prospect Park")

	// toggling never changes membership or the static unions
	assert.Len(t, s.LocationIDs(), 3)
	assert.Contains(t, s.AllSpecies(), "Summer Tanager")

	require.NoError(t, s.Activate(centralPark))
	assert.True(t, s.IsActive(centralPark))
	assert.Contains(t, s.ActiveSpecies(), "Summer Tanager")
	assert.Equal(t, s.LocationIDs(), s.ActiveHotspots())
}

func TestSummarizer_ActivationIsIdempotent(t *testing.T) {
	s := newTestSummarizer(t)

	require.NoError(t, s.Activate(prospectPark))
	require.NoError(t, s.Activate(prospectPark))
	assert.Len(t, s.ActiveHotspots(), 3)

	require.NoError(t, s.Deactivate(prospectPark))
	require.NoError(t, s.Deactivate(prospectPark))
	assert.Len(t, s.ActiveHotspots(), 2)
}

func TestSummarizer_UnknownLocation(t *testing.T) {
	s := newTestSummarizer(t)
	require.NoError(t, s.Deactivate(jamaicaBay))
	before := s.ActiveHotspots()

	err := s.Deactivate("L0000")
	require.ErrorIs(t, err, ErrUnknownLocation)
	assert.Contains(t, err.Error(), "L0000")

	require.ErrorIs(t, s.Activate("L0000"), ErrUnknownLocation)
	assert.Equal(t, before, s.ActiveHotspots())
}

func TestSummarizer_DeactivateAll(t *testing.T) {
	s := newTestSummarizer(t)
	for _, id := range s.LocationIDs() {
		require.NoError(t, s.Deactivate(id))
	}

	assert.Empty(t, s.ActiveHotspots())
	assert.Empty(t, s.ActiveSpecies())
	assert.Len(t, s.AllSpecies(), 4)
}

func TestCombinedProbability(t *testing.T) {
	tests := []struct {
		name     string
		rates    []float64
		expected float64
	}{
		{"two coin flips", []float64{0.5, 0.5}, 0.75},
		{"single rate unchanged", []float64{0.5}, 0.5},
		{"all zero", []float64{0, 0, 0, 0}, 0},
		{"all certain", []float64{1, 1}, 1},
		{"one certain", []float64{0, 1}, 1},
		{"three sites", []float64{0.1, 0.2, 0.3}, 0.496},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CombinedProbability(tt.rates), 1e-12)
		})
	}
}

func TestSummarizer_BuildSummaryDict(t *testing.T) {
	s := newTestSummarizer(t)

	dict, err := s.BuildSummaryDict(domain.PeriodRange(0, 3), false)
	require.NoError(t, err)

	require.Len(t, dict, 3)
	assert.Equal(t, map[string]float64{"Gadwall": 0.5, "Wood Duck": 0.2}, dict[prospectPark])
	assert.Equal(t, map[string]float64{"Gadwall": 0.5, "Summer Tanager": 0.3}, dict[centralPark])
	assert.Equal(t, map[string]float64{"Snow Goose": 0.25}, dict[jamaicaBay])
	assert.NotContains(t, dict[jamaicaBay], "Gadwall", "missing species are absent, not zero-filled")
}

func TestSummarizer_BuildSummaryDictOtherTaxa(t *testing.T) {
	s := newTestSummarizer(t)

	dict, err := s.BuildSummaryDict(domain.PeriodRange(46, 1), true)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, dict[prospectPark]["goose sp."], 1e-9)
	assert.InDelta(t, 0.05, dict[jamaicaBay]["Western x Glaucous-winged Gull"], 1e-9)
}

func TestSummarizer_BuildSummaryDictIgnoresActivation(t *testing.T) {
	s := newTestSummarizer(t)
	all, err := s.BuildSummaryDict(domain.PeriodRange(0, 47), false)
	require.NoError(t, err)

	require.NoError(t, s.Deactivate(prospectPark))
	require.NoError(t, s.Deactivate(centralPark))

	afterToggle, err := s.BuildSummaryDict(domain.PeriodRange(0, 47), false)
	require.NoError(t, err)
	assert.Equal(t, all, afterToggle)
}

func TestSummarizer_BuildSummaryDictInvalidPeriod(t *testing.T) {
	s := newTestSummarizer(t)

	_, err := s.BuildSummaryDict([]int{48}, false)
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestSummarizer_SummariesAreIdempotent(t *testing.T) {
	s := newTestSummarizer(t)
	periods := domain.PeriodRange(46, 1)

	first, err := s.BuildSummaryDict(periods, true)
	require.NoError(t, err)
	second, err := s.BuildSummaryDict(periods, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	c1, err := s.CombinedSummary(periods, true)
	require.NoError(t, err)
	c2, err := s.CombinedSummary(periods, true)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestSummarizer_CombinedSummary(t *testing.T) {
	s := newTestSummarizer(t)

	combined, err := s.CombinedSummary(domain.PeriodRange(0, 47), false)
	require.NoError(t, err)

	assert.Len(t, combined, 4)
	assert.InDelta(t, 0.75, combined["Gadwall"], 1e-9)
	assert.InDelta(t, 0.2, combined["Wood Duck"], 1e-9)
	assert.InDelta(t, 0.3, combined["Summer Tanager"], 1e-9)
	assert.InDelta(t, 0.25, combined["Snow Goose"], 1e-9)
	assert.NotContains(t, combined, "goose sp.")
}

func TestSummarizer_CombinedSummaryHonoursActivation(t *testing.T) {
	s := newTestSummarizer(t)
	require.NoError(t, s.Deactivate(centralPark))

	combined, err := s.CombinedSummary(domain.PeriodRange(0, 47), true)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, combined["Gadwall"], 1e-9)
	assert.NotContains(t, combined, "Summer Tanager")
	assert.InDelta(t, 0.1, combined["goose sp."], 1e-9)
	assert.InDelta(t, 0.05, combined["Western x Glaucous-winged Gull"], 1e-9)
}
