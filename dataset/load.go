package dataset

import (
	"context"
	"time"

	logging "github.com/ipfs/go-log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var log = logging.Logger("dataset")

var tracer = otel.Tracer("covglobe/dataset")

// Load fetches the three sources, parses them and builds the Dataset. It
// returns either a complete Dataset or a single error; recovered anomalies
// are available from Dataset.Diagnostics.
func Load(ctx context.Context, src Sources, opts Options) (*Dataset, error) {
	ctx, span := tracer.Start(ctx, "dataset.Load")
	defer span.End()

	start := time.Now()
	ds, err := load(ctx, src, opts)
	elapsed := time.Since(start)
	opts.Metrics.observe(ds, err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Errorw("dataset load failed", "error", err, "elapsed", elapsed)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("dataset.regions", ds.NumRegions()),
		attribute.Int("dataset.dates", ds.NumDates()),
		attribute.Int("dataset.diagnostics", ds.diag.Total()),
	)
	log.Infow("dataset loaded",
		"regions", ds.NumRegions(),
		"dates", ds.NumDates(),
		"align", ds.align,
		"diagnostics", ds.diag.Total(),
		"elapsed", elapsed,
	)
	for kind, n := range ds.diag.Counts() {
		log.Warnw("recovered anomalies", "kind", kind, "count", n)
	}
	return ds, nil
}

func load(ctx context.Context, src Sources, opts Options) (*Dataset, error) {
	if err := src.Validate(); err != nil {
		return nil, &LoadError{Op: "dataset.load", Kind: KindSourceUnavailable, Err: err}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewAutoFetcher(opts.FetchTimeout)
	}

	bodies, err := fetchWithTimeout(ctx, fetcher, src, opts.FetchTimeout)
	if err != nil {
		return nil, err
	}

	diag := NewDiagnostics()
	var tables [numMetrics]Table
	for _, m := range Metrics {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{Op: "dataset.parse", Kind: KindCanceled, Source: src.Locator(m), Err: err}
		}
		tables[m] = ParseTable(m.String(), string(bodies[m]), diag)
	}

	return Build(tables[Infected], tables[Deceased], tables[Recovered], opts, diag)
}

// fetchWithTimeout bounds only the fetch phase; parsing runs under ctx alone.
func fetchWithTimeout(ctx context.Context, f Fetcher, src Sources, timeout time.Duration) ([numMetrics][]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "dataset.FetchAll")
	defer span.End()
	return FetchAll(ctx, f, src)
}
