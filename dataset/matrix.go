package dataset

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MetricMatrix holds one metric as a regions x dates matrix. Cells that
// could not be parsed are NaN.
type MetricMatrix struct {
	dense      *mat.Dense
	rows, cols int
}

func newMetricMatrix(rows, cols int) *MetricMatrix {
	m := &MetricMatrix{rows: rows, cols: cols}
	// mat.NewDense panics on zero dimensions.
	if rows > 0 && cols > 0 {
		m.dense = mat.NewDense(rows, cols, nil)
	}
	return m
}

func (m *MetricMatrix) Dims() (rows, cols int) {
	return m.rows, m.cols
}

func (m *MetricMatrix) set(i, j int, v float64) {
	m.dense.Set(i, j, v)
}

// At returns the cell and whether it holds a parsed value.
func (m *MetricMatrix) At(i, j int) (int, bool) {
	v := m.dense.At(i, j)
	if math.IsNaN(v) {
		return 0, false
	}
	return int(v), true
}

// Row returns a copy of region i across all dates.
func (m *MetricMatrix) Row(i int) []float64 {
	if m.dense == nil {
		return []float64{}
	}
	return mat.Row(nil, i, m.dense)
}

// columnTotals sums every date column, skipping NaN cells.
func (m *MetricMatrix) columnTotals() []int {
	totals := make([]int, m.cols)
	if m.dense == nil {
		return totals
	}
	col := make([]float64, m.rows)
	finite := make([]float64, 0, m.rows)
	for j := 0; j < m.cols; j++ {
		mat.Col(col, j, m.dense)
		finite = finite[:0]
		for _, v := range col {
			if !math.IsNaN(v) {
				finite = append(finite, v)
			}
		}
		totals[j] = int(floats.Sum(finite))
	}
	return totals
}

// markerScale squashes a count into (0, 5) for sizing a region marker; an
// empty region sits at 2.5. Unparsable counts get 0.
func markerScale(x float64) float64 {
	const lower, upper = 0.0, 5.0
	if math.IsNaN(x) {
		return 0
	}
	return (upper-lower)/(1+math.Exp(-x)) + lower
}
