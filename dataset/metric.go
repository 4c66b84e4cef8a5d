package dataset

import (
	"fmt"
	"strings"
)

// Metric is one of the tracked cumulative counts.
type Metric int

const (
	Infected Metric = iota
	Deceased
	Recovered

	numMetrics = 3
)

// Metrics lists every metric in source order.
var Metrics = []Metric{Infected, Deceased, Recovered}

func (m Metric) String() string {
	switch m {
	case Infected:
		return "infected"
	case Deceased:
		return "deceased"
	case Recovered:
		return "recovered"
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

func (m Metric) valid() bool {
	return m >= Infected && m <= Recovered
}

// ParseMetric accepts the metric names and the JHU file aliases
// (confirmed, deaths).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "infected", "confirmed":
		return Infected, nil
	case "deceased", "deaths":
		return Deceased, nil
	case "recovered":
		return Recovered, nil
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// Sources holds the locator (path, file:// or http(s) URL) of each dataset.
type Sources struct {
	Confirmed string `yaml:"confirmed"`
	Deceased  string `yaml:"deceased"`
	Recovered string `yaml:"recovered"`
}

func (s Sources) Locator(m Metric) string {
	switch m {
	case Infected:
		return s.Confirmed
	case Deceased:
		return s.Deceased
	case Recovered:
		return s.Recovered
	}
	return ""
}

func (s Sources) Validate() error {
	for _, m := range Metrics {
		if s.Locator(m) == "" {
			return fmt.Errorf("no source configured for %s", m)
		}
	}
	return nil
}
