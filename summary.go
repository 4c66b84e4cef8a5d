package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/covglobe/covglobe/dataset"
)

func writeSummary(w io.Writer, ds *dataset.Dataset) error {
	dates := ds.Dates()
	fmt.Fprintf(w, "regions: %d\n", ds.NumRegions())
	if len(dates) == 0 {
		fmt.Fprintln(w, "dates:   none")
	} else {
		fmt.Fprintf(w, "dates:   %d (%s .. %s)\n", len(dates), dates[0], dates[len(dates)-1])
		last := len(dates) - 1
		for _, m := range dataset.Metrics {
			total, _ := ds.Total(m, last)
			fmt.Fprintf(w, "%-10s %d\n", m.String()+":", total)
		}
	}
	fmt.Fprintf(w, "align:   %s\n", ds.AlignMode())

	counts := ds.Diagnostics().Counts()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "diagnostic %s: %d\n", k, counts[dataset.Kind(k)])
	}
	return nil
}
