// Package domain models eBird bar chart exports and the occurrence rates
// derived from them.
//
// # Data Source
//
// Bar chart data is downloaded from the eBird "Bar Charts" page of a hotspot
// ("Download Histogram Data"). Each export covers a single location and a
// range of years and months, and is a tab-delimited text file.
//
// # Filename Conventions
//
//	ebird_<locationID>__<startYear>_<endYear>_<startMonth>_<endMonth>_barchart.txt
//
// The stem is split on underscores. Token 1 is the location ID (e.g. "L109516"),
// token 2 is empty, tokens 3–6 are the coverage years and months. Coverage is
// descriptive only and never feeds a computation.
//
// # File Layout
//
//	rows 0–13  header text (ignored)
//	row 14     "Sample Size:" followed by 48 checklist counts
//	row 15     blank
//	rows 16+   one taxon per row: label followed by 48 frequencies (0.0–1.0)
//
// Rows are counted including blank lines. Rows usually end with a trailing tab,
// which yields an empty last field.
//
// # Periods
//
// A year is split into 48 periods, four per month. Period p belongs to month
// p/4 (0-based). Periods are cyclic: period 47 is followed by period 0, so a
// winter window such as mid-December to mid-January is expressed as
// PeriodRange(46, 1).
//
// # Labels and Taxa
//
// Labels may carry the scientific name as an HTML fragment:
//
//	goose sp. (<em class="sci">Anser/Branta sp.</em>)  →  "goose sp."
//
// Cleaned labels are split into species and "other taxa". A label is other
// taxa when it contains " sp.", " x ", "/", "Domestic" or "hybrid"
// (case-insensitive). These markers are matched literally; eBird uses them for
// spuhs, hybrids, slashes, and domestic types.
//
// # Occurrence Rates
//
// Frequencies are converted back to sighting counts when a file is parsed:
// count = round(frequency × sampleSize). Rates over a window of periods are the
// sum of counts divided by the sum of sample sizes, rounded to 5 decimal
// places. A window without checklists has a rate of 0.
package domain
