// Package taxonomy loads the eBird/Clements taxonomy CSV and orders common
// names by taxonomic sequence.
package taxonomy

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	colTaxonOrder = 0
	colCommonName = 3
)

// ErrMalformedTaxonomy is returned for rows without a numeric taxon order or a
// common name.
var ErrMalformedTaxonomy = errors.New("malformed taxonomy")

// Taxonomy maps common names to their position in the taxonomic sequence.
type Taxonomy struct {
	ranks map[string]int
}

// LoadFile reads a taxonomy CSV from disk.
func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Load reads a taxonomy CSV. eBird publishes the file in ISO-8859-1; the first
// row is a header.
func Load(r io.Reader) (*Taxonomy, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return &Taxonomy{ranks: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("read taxonomy header: %w", err)
	}

	t := &Taxonomy{ranks: make(map[string]int)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read taxonomy: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(row) <= colCommonName {
			return nil, fmt.Errorf("%w: line %d has %d columns", ErrMalformedTaxonomy, line, len(row))
		}
		rank, err := strconv.Atoi(strings.TrimSpace(row[colTaxonOrder]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: taxon order %q", ErrMalformedTaxonomy, line, row[colTaxonOrder])
		}
		name := strings.TrimSpace(row[colCommonName])
		if name == "" {
			return nil, fmt.Errorf("%w: line %d has no common name", ErrMalformedTaxonomy, line)
		}
		t.ranks[name] = rank
	}
	return t, nil
}

// Len returns the number of named taxa.
func (t *Taxonomy) Len() int { return len(t.ranks) }

// Rank returns the taxonomic order of a common name.
func (t *Taxonomy) Rank(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	rank, ok := t.ranks[name]
	return rank, ok
}

// Sort orders names in place by taxonomic rank. Unranked names follow the
// ranked ones in alphabetical order. A nil Taxonomy sorts alphabetically.
func (t *Taxonomy) Sort(names []string) {
	slices.SortStableFunc(names, func(a, b string) int {
		ra, okA := t.Rank(a)
		rb, okB := t.Rank(b)
		switch {
		case okA && okB:
			return cmp.Or(cmp.Compare(ra, rb), strings.Compare(a, b))
		case okA:
			return -1
		case okB:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
}
