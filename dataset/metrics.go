package dataset

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LoadMetrics exposes load outcomes and diagnostic counts to Prometheus.
type LoadMetrics struct {
	Loads        *prometheus.CounterVec
	LoadDuration prometheus.Histogram
	Diagnostics  *prometheus.CounterVec
	Regions      prometheus.Gauge
	Dates        prometheus.Gauge
}

// NewLoadMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Registering twice returns the existing collectors.
func NewLoadMetrics(reg prometheus.Registerer) (*LoadMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	loads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_loads_total",
		Help: "Dataset loads, labeled by result (ok, source_unavailable, inconsistent_sources, canceled, error).",
	}, []string{"result"}), "dataset_loads_total")
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dataset_load_duration_seconds",
		Help:    "Wall time of a dataset load including fetches.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "dataset_load_duration_seconds")
	if err != nil {
		return nil, err
	}
	diags, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_diagnostics_total",
		Help: "Recovered anomalies seen while loading, labeled by kind.",
	}, []string{"kind"}), "dataset_diagnostics_total")
	if err != nil {
		return nil, err
	}
	regions, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_regions",
		Help: "Regions in the loaded dataset.",
	}), "dataset_regions")
	if err != nil {
		return nil, err
	}
	dates, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_dates",
		Help: "Dates in the loaded dataset.",
	}), "dataset_dates")
	if err != nil {
		return nil, err
	}

	return &LoadMetrics{
		Loads:        loads,
		LoadDuration: duration,
		Diagnostics:  diags,
		Regions:      regions,
		Dates:        dates,
	}, nil
}

func (m *LoadMetrics) observe(ds *Dataset, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(elapsed.Seconds())

	result := "ok"
	var le *LoadError
	switch {
	case err == nil:
	case errors.As(err, &le):
		result = string(le.Kind)
	default:
		result = "error"
	}
	m.Loads.WithLabelValues(result).Inc()

	if ds == nil {
		return
	}
	for kind, n := range ds.diag.Counts() {
		m.Diagnostics.WithLabelValues(string(kind)).Add(float64(n))
	}
	m.Regions.Set(float64(ds.NumRegions()))
	m.Dates.Set(float64(ds.NumDates()))
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register %s: %w", name, err)
	}
	return c, nil
}
