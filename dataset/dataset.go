package dataset

import (
	"fmt"
	"math"
)

// Coord is a region's position in degrees. Unparsable values are NaN.
type Coord struct {
	Lat  float64
	Long float64
}

// Region is one row of the confirmed file.
type Region struct {
	Province string
	Country  string
	Coord    Coord
}

func (r Region) Name() string {
	if r.Province == "" {
		return r.Country
	}
	return r.Province + ", " + r.Country
}

// Dataset is the aggregated, immutable result of a load. Row i of every
// matrix and Regions()[i] describe the same region; every matrix has one
// column per entry in Dates().
type Dataset struct {
	dates    []string
	regions  []Region
	matrices [numMetrics]*MetricMatrix
	totals   [numMetrics][]int
	align    AlignMode
	diag     *Diagnostics
}

func (d *Dataset) NumRegions() int { return len(d.regions) }
func (d *Dataset) NumDates() int   { return len(d.dates) }

func (d *Dataset) Dates() []string {
	return append([]string(nil), d.dates...)
}

func (d *Dataset) Regions() []Region {
	return append([]Region(nil), d.regions...)
}

// Region returns region i; ok is false when i is out of range.
func (d *Dataset) Region(i int) (Region, bool) {
	if i < 0 || i >= len(d.regions) {
		return Region{}, false
	}
	return d.regions[i], true
}

func (d *Dataset) Coords() []Coord {
	out := make([]Coord, len(d.regions))
	for i, r := range d.regions {
		out[i] = r.Coord
	}
	return out
}

// AlignMode reports how deaths and recovered rows were paired.
func (d *Dataset) AlignMode() AlignMode { return d.align }

func (d *Dataset) Diagnostics() *Diagnostics { return d.diag }

func (d *Dataset) checkIndex(m Metric, region, date int) error {
	if err := d.checkRegion(m, region); err != nil {
		return err
	}
	if date < 0 || date >= len(d.dates) {
		return fmt.Errorf("date index %d out of range [0,%d)", date, len(d.dates))
	}
	return nil
}

// Count returns the metric for a region at a timeline index. ok is false when
// the indices are out of range or the source cell could not be parsed.
func (d *Dataset) Count(m Metric, region, date int) (n int, ok bool) {
	if d.checkIndex(m, region, date) != nil {
		return 0, false
	}
	return d.matrices[m].At(region, date)
}

// Row returns a copy of one region's series; unparsable cells are NaN.
func (d *Dataset) Row(m Metric, region int) ([]float64, error) {
	if err := d.checkRegion(m, region); err != nil {
		return nil, err
	}
	return d.matrices[m].Row(region), nil
}

func (d *Dataset) checkRegion(m Metric, region int) error {
	if !m.valid() {
		return fmt.Errorf("unknown metric %d", int(m))
	}
	if region < 0 || region >= len(d.regions) {
		return fmt.Errorf("region index %d out of range [0,%d)", region, len(d.regions))
	}
	return nil
}

// Totals returns a copy of the per-date sums of m over all regions.
func (d *Dataset) Totals(m Metric) []int {
	if !m.valid() {
		return nil
	}
	return append([]int(nil), d.totals[m]...)
}

func (d *Dataset) Total(m Metric, date int) (int, bool) {
	if !m.valid() || date < 0 || date >= len(d.dates) {
		return 0, false
	}
	return d.totals[m][date], true
}

// RegionValue is one region at one timeline index. Nil counts were not
// parsable.
type RegionValue struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Infected  *int    `json:"infected"`
	Deceased  *int    `json:"deceased"`
	Recovered *int    `json:"recovered"`
	Scale     float64 `json:"scale"`
}

// Snapshot is every region plus the global totals at one timeline index.
type Snapshot struct {
	Index   int            `json:"index"`
	Date    string         `json:"date"`
	Totals  map[string]int `json:"totals"`
	Regions []RegionValue  `json:"regions"`
}

// Snapshot slices all matrices at a timeline index. Scale sizes a region
// marker from its infected count.
func (d *Dataset) Snapshot(date int) (Snapshot, error) {
	if date < 0 || date >= len(d.dates) {
		return Snapshot{}, fmt.Errorf("date index %d out of range [0,%d)", date, len(d.dates))
	}
	s := Snapshot{
		Index:   date,
		Date:    d.dates[date],
		Totals:  make(map[string]int, numMetrics),
		Regions: make([]RegionValue, len(d.regions)),
	}
	for _, m := range Metrics {
		s.Totals[m.String()] = d.totals[m][date]
	}

	for i, r := range d.regions {
		s.Regions[i] = RegionValue{
			Index:     i,
			Name:      r.Name(),
			Infected:  d.countPtr(Infected, i, date),
			Deceased:  d.countPtr(Deceased, i, date),
			Recovered: d.countPtr(Recovered, i, date),
		}
		infected := math.NaN()
		if s.Regions[i].Infected != nil {
			infected = float64(*s.Regions[i].Infected)
		}
		s.Regions[i].Scale = markerScale(infected)
	}
	return s, nil
}

func (d *Dataset) countPtr(m Metric, region, date int) *int {
	n, ok := d.matrices[m].At(region, date)
	if !ok {
		return nil
	}
	return &n
}

// Export is the complete data model in a JSON encodable form: coordinates as
// [lat, long] pairs, matrices and totals keyed by metric name. NaN values
// become null.
type Export struct {
	Coords   [][2]*float64       `json:"coords"`
	Dates    []string            `json:"dates"`
	Matrices map[string][][]*int `json:"matrices"`
	Totals   map[string][]int    `json:"totals"`
}

func (d *Dataset) Export() Export {
	e := Export{
		Coords:   d.CoordPairs(),
		Dates:    d.Dates(),
		Matrices: make(map[string][][]*int, numMetrics),
		Totals:   make(map[string][]int, numMetrics),
	}
	for _, m := range Metrics {
		rows := make([][]*int, len(d.regions))
		for i := range rows {
			rows[i], _ = d.Series(m, i)
		}
		e.Matrices[m.String()] = rows
		e.Totals[m.String()] = d.Totals(m)
	}
	return e
}

// CoordPairs returns [lat, long] pairs with unparsable values as nil.
func (d *Dataset) CoordPairs() [][2]*float64 {
	out := make([][2]*float64, len(d.regions))
	for i, r := range d.regions {
		out[i] = r.Coord.Pair()
	}
	return out
}

// Pair returns [lat, long] with unparsable values as nil.
func (c Coord) Pair() [2]*float64 {
	return [2]*float64{finitePtr(c.Lat), finitePtr(c.Long)}
}

// Series is Row with unparsable cells as nil.
func (d *Dataset) Series(m Metric, region int) ([]*int, error) {
	if err := d.checkRegion(m, region); err != nil {
		return nil, err
	}
	out := make([]*int, len(d.dates))
	for j := range out {
		out[j] = d.countPtr(m, region, j)
	}
	return out, nil
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
