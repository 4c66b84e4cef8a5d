package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// AlignMode selects how deaths and recovered rows are matched to the
// confirmed rows.
type AlignMode string

const (
	// AlignPositional pairs rows by index.
	AlignPositional AlignMode = "positional"
	// AlignKeyed pairs rows by province and country name, falling back to
	// positional pairing when the names are not a usable key.
	AlignKeyed AlignMode = "keyed"
)

func ParseAlignMode(s string) (AlignMode, error) {
	switch AlignMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlignPositional:
		return AlignPositional, nil
	case AlignKeyed:
		return AlignKeyed, nil
	}
	return "", fmt.Errorf("unknown align mode %q", s)
}

// Options tunes Load and Build. The zero value is positional alignment with
// lenient header checks, no fetch timeout and the AutoFetcher.
type Options struct {
	Align         AlignMode
	StrictHeaders bool
	FetchTimeout  time.Duration
	Fetcher       Fetcher
	Metrics       *LoadMetrics
}

// Build aggregates three parsed tables. The confirmed table is authoritative
// for the region count and the date axis; the other two are aligned to it and
// zero-padded or truncated. diag may be nil.
func Build(confirmed, deceased, recovered Table, opts Options, diag *Diagnostics) (*Dataset, error) {
	if diag == nil {
		diag = NewDiagnostics()
	}
	tables := [numMetrics]Table{confirmed, deceased, recovered}

	dates := confirmed.Dates()
	for _, m := range []Metric{Deceased, Recovered} {
		if err := checkHeader(dates, tables[m], opts.StrictHeaders, diag); err != nil {
			return nil, err
		}
	}

	nRegions, nDates := len(confirmed.Rows), len(dates)
	ds := &Dataset{
		dates:   dates,
		regions: make([]Region, nRegions),
		align:   alignOrDefault(opts.Align),
		diag:    diag,
	}
	for _, m := range Metrics {
		ds.matrices[m] = newMetricMatrix(nRegions, nDates)
	}

	var pairing [numMetrics][]int
	for _, m := range []Metric{Deceased, Recovered} {
		pairing[m] = alignRows(confirmed, tables[m], ds.align, diag)
	}

	for i, row := range confirmed.Rows {
		ds.regions[i] = parseRegion(confirmed.Name, i, row, diag)

		if have := len(row) - dateColStart; have != nDates {
			diag.add(KindMalformedRow, confirmed.Name, i, -1,
				"row has %d date columns, header has %d", max(have, 0), nDates)
		}
		for j := 0; j < nDates; j++ {
			col := dateColStart + j
			v := math.NaN()
			if col < len(row) {
				if n, ok := parseCount(row[col]); ok {
					v = n
				} else {
					diag.add(KindParseWarning, confirmed.Name, i, col, "unparsable count %q", row[col])
				}
			}
			ds.matrices[Infected].set(i, j, v)
		}

		for _, m := range []Metric{Deceased, Recovered} {
			fillSecondary(ds.matrices[m], tables[m], pairing[m][i], i, nDates, diag)
		}
	}

	for _, m := range Metrics {
		ds.totals[m] = ds.matrices[m].columnTotals()
	}
	return ds, nil
}

// fillSecondary copies the paired row k of t into region i of mm. Absent rows,
// absent columns and unparsable cells stay zero and are recorded.
func fillSecondary(mm *MetricMatrix, t Table, k, i, nDates int, diag *Diagnostics) {
	if k < 0 {
		diag.add(KindZeroSubstituted, t.Name, i, -1, "no row for region %d, %d dates zeroed", i, nDates)
		return
	}
	row := t.Rows[k]
	missing := 0
	for j := 0; j < nDates; j++ {
		col := dateColStart + j
		if col >= len(row) {
			missing++
			continue
		}
		n, ok := parseCount(row[col])
		if !ok {
			diag.add(KindParseWarning, t.Name, k, col, "unparsable count %q, using 0", row[col])
			continue
		}
		mm.set(i, j, n)
	}
	if missing > 0 {
		diag.add(KindZeroSubstituted, t.Name, k, -1, "%d of %d date columns absent, zeroed", missing, nDates)
	}
}

func checkHeader(dates []string, t Table, strict bool, diag *Diagnostics) error {
	other := t.Dates()
	if equalStrings(dates, other) {
		return nil
	}
	reason := fmt.Sprintf("date header differs from confirmed (%d vs %d labels)", len(other), len(dates))
	if strict {
		return &LoadError{
			Op:     "dataset.build",
			Kind:   KindInconsistentSources,
			Source: t.Name,
			Err:    fmt.Errorf("%s", reason),
		}
	}
	diag.add(KindInconsistentSources, t.Name, -1, -1, "%s", reason)
	return nil
}

// alignRows returns, for every confirmed row, the index of the matching row
// in t or -1.
func alignRows(confirmed, t Table, mode AlignMode, diag *Diagnostics) []int {
	if mode == AlignKeyed {
		if pairing, ok := alignByKey(confirmed, t, diag); ok {
			return pairing
		}
	}

	pairing := make([]int, len(confirmed.Rows))
	mismatched := 0
	for i := range confirmed.Rows {
		if i >= len(t.Rows) {
			pairing[i] = -1
			continue
		}
		pairing[i] = i
		a, b := rowKey(confirmed.Rows[i]), rowKey(t.Rows[i])
		if a != "" && b != "" && a != b {
			mismatched++
		}
	}
	if mismatched > 0 {
		diag.add(KindInconsistentSources, t.Name, -1, -1,
			"%d positionally paired rows name a different region than confirmed", mismatched)
	}
	if extra := len(t.Rows) - len(confirmed.Rows); extra > 0 {
		diag.add(KindInconsistentSources, t.Name, -1, -1, "%d rows beyond the confirmed row count ignored", extra)
	}
	return pairing
}

func alignByKey(confirmed, t Table, diag *Diagnostics) ([]int, bool) {
	if _, err := indexRows(confirmed); err != nil {
		diag.add(KindInconsistentSources, confirmed.Name, -1, -1, "keyed alignment unavailable, using positional: %v", err)
		return nil, false
	}
	index, err := indexRows(t)
	if err != nil {
		diag.add(KindInconsistentSources, t.Name, -1, -1, "keyed alignment unavailable, using positional: %v", err)
		return nil, false
	}

	pairing := make([]int, len(confirmed.Rows))
	used := 0
	for i, row := range confirmed.Rows {
		k, ok := index[rowKey(row)]
		if !ok {
			pairing[i] = -1
			continue
		}
		pairing[i] = k
		used++
	}
	if unused := len(t.Rows) - used; unused > 0 {
		diag.add(KindInconsistentSources, t.Name, -1, -1, "%d rows match no confirmed region and were ignored", unused)
	}
	return pairing, true
}

func indexRows(t Table) (map[string]int, error) {
	index := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		key := rowKey(row)
		if key == "" {
			return nil, fmt.Errorf("row %d has no region name", i)
		}
		if prev, dup := index[key]; dup {
			return nil, fmt.Errorf("rows %d and %d share region %q", prev, i, key)
		}
		index[key] = i
	}
	return index, nil
}

func parseRegion(source string, i int, row []string, diag *Diagnostics) Region {
	r := Region{Coord: Coord{Lat: math.NaN(), Long: math.NaN()}}
	if len(row) > colProvince {
		r.Province = strings.TrimSpace(row[colProvince])
	}
	if len(row) > colCountry {
		r.Country = strings.TrimSpace(row[colCountry])
	}
	if len(row) <= colLong {
		diag.add(KindMalformedRow, source, i, -1, "row has %d columns, no coordinates", len(row))
		return r
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(row[colLat]), 64); err == nil {
		r.Coord.Lat = v
	} else {
		diag.add(KindParseWarning, source, i, colLat, "unparsable latitude %q", row[colLat])
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(row[colLong]), 64); err == nil {
		r.Coord.Long = v
	} else {
		diag.add(KindParseWarning, source, i, colLong, "unparsable longitude %q", row[colLong])
	}
	return r
}

// parseCount reads an integer count. Decimal values are truncated.
func parseCount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Trunc(f), true
}

func alignOrDefault(m AlignMode) AlignMode {
	if m == "" {
		return AlignPositional
	}
	return m
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}
