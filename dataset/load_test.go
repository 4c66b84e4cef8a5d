package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLoad_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	header := "Province,Country,Lat,Long,1/22/20,1/23/20\n"
	src := Sources{
		Confirmed: write("confirmed.csv", header+",A,10,20,3,4\n,B,-10,-20,5,9\n"),
		Deceased:  write("deaths.csv", header+",A,10,20,0,0\n,B,-10,-20,0,0\n"),
		Recovered: write("recovered.csv", header+",A,10,20,0,0\n,B,-10,-20,0,0\n"),
	}

	ds, err := Load(context.Background(), src, Options{FetchTimeout: time.Second})
	require.NoError(t, err)
	requireConsistent(t, ds)

	require.Equal(t, []string{"1/22/20", "1/23/20"}, ds.Dates())
	require.Len(t, ds.Coords(), 2)
	total, ok := ds.Total(Infected, 0)
	require.True(t, ok)
	require.Equal(t, 3+5, total)
	require.Equal(t, []int{0, 0}, ds.Totals(Deceased))
}

func TestLoad_SourceUnavailable(t *testing.T) {
	f := memFetcher(map[string]string{
		memSources.Confirmed: testConfirmed,
		memSources.Deceased:  testDeceased,
	})

	ds, err := Load(context.Background(), memSources, Options{Fetcher: f})
	require.Nil(t, ds)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSourceUnavailable))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, memSources.Recovered, le.Source)
}

func TestLoad_MissingLocator(t *testing.T) {
	_, err := Load(context.Background(), Sources{Confirmed: "a.csv"}, Options{})
	require.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestLoad_FetchTimeout(t *testing.T) {
	f := fetchFunc(func(ctx context.Context, locator string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	_, err := Load(context.Background(), memSources, Options{Fetcher: f, FetchTimeout: 20 * time.Millisecond})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSourceUnavailable))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestLoad_FetchTimeoutDoesNotCoverParsing(t *testing.T) {
	bodies := map[string]string{
		memSources.Confirmed: testConfirmed,
		memSources.Deceased:  testDeceased,
		memSources.Recovered: testRecovered,
	}
	// Answers after the deadline has passed, ignoring ctx.
	f := fetchFunc(func(ctx context.Context, locator string) ([]byte, error) {
		time.Sleep(60 * time.Millisecond)
		return []byte(bodies[locator]), nil
	})

	ds, err := Load(context.Background(), memSources, Options{Fetcher: f, FetchTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, 2, ds.NumRegions())
}

func TestLoad_CanceledBeforeParse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := fetchFunc(func(_ context.Context, locator string) ([]byte, error) {
		cancel()
		return []byte(testConfirmed), nil
	})

	_, err := Load(ctx, memSources, Options{Fetcher: f})
	require.Error(t, err)
	require.True(t, IsKind(err, KindCanceled))
	require.True(t, errors.Is(err, context.Canceled))
	require.False(t, errors.Is(err, ErrSourceUnavailable))
}

func TestLoad_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewLoadMetrics(reg)
	require.NoError(t, err)

	again, err := NewLoadMetrics(reg)
	require.NoError(t, err)
	require.Same(t, m.Loads, again.Loads)

	deceased := testHeader + ",Afghanistan,33.0,65.0,0,0,1\n"
	f := memFetcher(map[string]string{
		memSources.Confirmed: testConfirmed,
		memSources.Deceased:  deceased,
		memSources.Recovered: testRecovered,
	})

	_, err = Load(context.Background(), memSources, Options{Fetcher: f, Metrics: m})
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Diagnostics.WithLabelValues(string(KindZeroSubstituted))))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Regions))
	require.Equal(t, 3.0, testutil.ToFloat64(m.Dates))

	_, err = Load(context.Background(), Sources{Confirmed: "x"}, Options{Metrics: m})
	require.Error(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(string(KindSourceUnavailable))))
}
