package domain

import "errors"

var (
	// ErrMalformedFilename is returned when the location or coverage tokens of a
	// bar chart filename cannot be parsed.
	ErrMalformedFilename = errors.New("malformed barchart filename")

	// ErrMalformedBody is returned when the sample size row is missing or short,
	// or a taxon row cannot be parsed.
	ErrMalformedBody = errors.New("malformed barchart body")

	// ErrNameLookup wraps failures of the HotspotNamer during construction.
	ErrNameLookup = errors.New("hotspot name lookup failed")

	// ErrLengthMismatch means sample sizes and counts of different lengths were
	// passed to WeightedAverage. It indicates a caller bug.
	ErrLengthMismatch = errors.New("sample sizes and observations differ in length")

	// ErrInvalidPeriod is returned for period indices outside [0, Periods).
	ErrInvalidPeriod = errors.New("invalid period index")
)
