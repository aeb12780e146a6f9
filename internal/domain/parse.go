package domain

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	sampleSizeRow = 14
	taxaStartRow  = 16

	// htmlMarker introduces the scientific-name fragment eBird appends to labels.
	htmlMarker = " (<"
)

// otherTaxaMarkers flag spuhs, hybrids, slashes, and domestic types.
// Matched case-insensitively against the cleaned label.
var otherTaxaMarkers = []string{" sp.", " x ", "/", "Domestic", "hybrid"}

// RawFile is an unparsed bar chart export.
type RawFile struct {
	Path string // source path, used for reporting only
	Stem string // filename without directory or extension
	Text string
}

// FileInfo holds the fields encoded in a bar chart filename.
type FileInfo struct {
	LocationID string
	StartYear  int
	EndYear    int
	StartMonth int
	EndMonth   int
}

// Body holds the numeric content of a bar chart export.
type Body struct {
	SampleSizes  []int
	Observations map[string][]int
}

// ParseFilename extracts the location ID and coverage from a filename stem such
// as "ebird_L109516__1900_2021_1_12_barchart".
func ParseFilename(stem string) (FileInfo, error) {
	parts := strings.Split(stem, "_")
	if len(parts) < 7 {
		return FileInfo{}, fmt.Errorf("%w: %q has %d tokens, want at least 7", ErrMalformedFilename, stem, len(parts))
	}
	if parts[1] == "" {
		return FileInfo{}, fmt.Errorf("%w: %q has no location id", ErrMalformedFilename, stem)
	}

	info := FileInfo{LocationID: parts[1]}
	fields := []struct {
		name string
		dst  *int
		tok  string
	}{
		{"start year", &info.StartYear, parts[3]},
		{"end year", &info.EndYear, parts[4]},
		{"start month", &info.StartMonth, parts[5]},
		{"end month", &info.EndMonth, parts[6]},
	}
	for _, f := range fields {
		v, err := strconv.Atoi(f.tok)
		if err != nil {
			return FileInfo{}, fmt.Errorf("%w: %q: %s %q is not a number", ErrMalformedFilename, stem, f.name, f.tok)
		}
		*f.dst = v
	}
	return info, nil
}

// ParseBody reads the sample size row and the taxon rows of a bar chart export.
// Frequencies are converted to estimated sighting counts using the sample size
// of the same period.
func ParseBody(text string) (Body, error) {
	lines := strings.Split(text, "\n")
	if len(lines) <= sampleSizeRow {
		return Body{}, fmt.Errorf("%w: %d rows, sample size row %d missing", ErrMalformedBody, len(lines), sampleSizeRow)
	}

	samples, err := parseSampleSizes(lines[sampleSizeRow])
	if err != nil {
		return Body{}, err
	}

	observations := make(map[string][]int)
	for i := taxaStartRow; i < len(lines); i++ {
		fields, err := splitRow(lines[i])
		if err != nil {
			return Body{}, fmt.Errorf("%w: row %d: %w", ErrMalformedBody, i, err)
		}
		if len(fields) == 0 {
			continue
		}
		label := CleanSpeciesName(fields[0])
		if label == "" {
			return Body{}, fmt.Errorf("%w: row %d has no label", ErrMalformedBody, i)
		}
		counts, err := estimateCounts(fields[1:], samples)
		if err != nil {
			return Body{}, fmt.Errorf("%w: row %d (%s): %w", ErrMalformedBody, i, label, err)
		}
		observations[label] = counts
	}

	return Body{SampleSizes: samples, Observations: observations}, nil
}

func parseSampleSizes(line string) ([]int, error) {
	fields, err := splitRow(line)
	if err != nil {
		return nil, fmt.Errorf("%w: sample size row: %w", ErrMalformedBody, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: sample size row is empty", ErrMalformedBody)
	}

	samples := make([]int, 0, Periods)
	for _, field := range fields[1:] {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sample size %q: %w", ErrMalformedBody, field, err)
		}
		samples = append(samples, int(v))
	}
	if len(samples) != Periods {
		return nil, fmt.Errorf("%w: %d sample sizes, want %d", ErrMalformedBody, len(samples), Periods)
	}
	return samples, nil
}

// estimateCounts pairs frequencies with sample sizes. Pairs beyond the shorter
// of the two are dropped; missing or blank periods stay zero.
func estimateCounts(freqs []string, samples []int) ([]int, error) {
	counts := make([]int, Periods)
	n := min(len(freqs), len(samples))
	for i := range n {
		field := strings.TrimSpace(freqs[i])
		if field == "" {
			continue
		}
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i, err)
		}
		counts[i] = int(math.RoundToEven(f * float64(samples[i])))
	}
	return counts, nil
}

// splitRow splits one tab-delimited line, honouring Excel-style quoting.
// An empty line yields no fields.
func splitRow(line string) ([]string, error) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.Read()
}

// CleanSpeciesName strips the HTML scientific-name fragment from a label.
// Labels without the fragment are returned unchanged.
func CleanSpeciesName(label string) string {
	name, _, _ := strings.Cut(label, htmlMarker)
	return name
}

// IsSpecies reports whether a cleaned label names a full species rather than a
// spuh, hybrid, slash, or domestic type.
func IsSpecies(label string) bool {
	lower := strings.ToLower(label)
	for _, marker := range otherTaxaMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return false
		}
	}
	return true
}
