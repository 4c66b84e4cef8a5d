package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/covglobe/covglobe/dataset"
)

const testHeader = "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n"

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	diag := dataset.NewDiagnostics()
	ds, err := dataset.Build(
		dataset.ParseTable("infected", testHeader+",A,10,20,1,2\n\"Korea, South\",Korea,36.5,127.5,3,oops\n", diag),
		dataset.ParseTable("deceased", testHeader+",A,10,20,0,1\n", diag),
		dataset.ParseTable("recovered", testHeader+",A,10,20,0,0\n\"Korea, South\",Korea,36.5,127.5,0,1\n", diag),
		dataset.Options{}, diag)
	require.NoError(t, err)
	return ds
}

func newTestEcho(t *testing.T, metrics http.Handler) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = httpErrorHandler(e)
	NewServer(testDataset(t), metrics).RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestServer_Dates(t *testing.T) {
	e := newTestEcho(t, nil)

	var out struct {
		Dates []string `json:"dates"`
	}
	require.Equal(t, http.StatusOK, get(t, e, "/api/dates", &out))
	require.Equal(t, []string{"1/22/20", "1/23/20"}, out.Dates)
}

func TestServer_Coords(t *testing.T) {
	e := newTestEcho(t, nil)

	var out struct {
		Coords [][2]float64 `json:"coords"`
	}
	require.Equal(t, http.StatusOK, get(t, e, "/api/coords", &out))
	require.Equal(t, [][2]float64{{10, 20}, {36.5, 127.5}}, out.Coords)
}

func TestServer_Totals(t *testing.T) {
	e := newTestEcho(t, nil)

	var out struct {
		Metric string `json:"metric"`
		Totals []int  `json:"totals"`
	}
	require.Equal(t, http.StatusOK, get(t, e, "/api/totals/confirmed", &out))
	require.Equal(t, "infected", out.Metric)
	require.Equal(t, []int{4, 2}, out.Totals)

	require.Equal(t, http.StatusOK, get(t, e, "/api/totals/deceased", &out))
	require.Equal(t, []int{0, 1}, out.Totals)

	require.Equal(t, http.StatusBadRequest, get(t, e, "/api/totals/bogus", nil))
}

func TestServer_Snapshot(t *testing.T) {
	e := newTestEcho(t, nil)

	var snap dataset.Snapshot
	require.Equal(t, http.StatusOK, get(t, e, "/api/snapshot/1", &snap))
	require.Equal(t, "1/23/20", snap.Date)
	require.Len(t, snap.Regions, 2)
	require.Nil(t, snap.Regions[1].Infected)
	require.Equal(t, 1, *snap.Regions[1].Recovered)
	require.Equal(t, 2, snap.Totals["infected"])

	var latest dataset.Snapshot
	require.Equal(t, http.StatusOK, get(t, e, "/api/snapshot/latest", &latest))
	require.Equal(t, snap, latest)

	require.Equal(t, http.StatusNotFound, get(t, e, "/api/snapshot/9", nil))
	require.Equal(t, http.StatusBadRequest, get(t, e, "/api/snapshot/x", nil))
}

func TestServer_Region(t *testing.T) {
	e := newTestEcho(t, nil)

	var out struct {
		Country string            `json:"country"`
		Coord   [2]float64        `json:"coord"`
		Series  map[string][]*int `json:"series"`
	}
	require.Equal(t, http.StatusOK, get(t, e, "/api/regions/1", &out))
	require.Equal(t, "Korea", out.Country)
	require.Equal(t, [2]float64{36.5, 127.5}, out.Coord)
	require.Len(t, out.Series["infected"], 2)
	require.Equal(t, 3, *out.Series["infected"][0])
	require.Nil(t, out.Series["infected"][1])
	require.Equal(t, 0, *out.Series["deceased"][1])

	require.Equal(t, http.StatusNotFound, get(t, e, "/api/regions/5", nil))
	require.Equal(t, http.StatusBadRequest, get(t, e, "/api/regions/abc", nil))
}

func TestServer_Diagnostics(t *testing.T) {
	e := newTestEcho(t, nil)

	var out struct {
		Align  string         `json:"align"`
		Counts map[string]int `json:"counts"`
	}
	require.Equal(t, http.StatusOK, get(t, e, "/api/diagnostics", &out))
	require.Equal(t, "positional", out.Align)
	require.Equal(t, 1, out.Counts["zero_substituted"])
	require.Equal(t, 1, out.Counts["parse_warning"])
}

func TestServer_Dataset(t *testing.T) {
	e := newTestEcho(t, nil)

	var out struct {
		Dates    []string            `json:"dates"`
		Matrices map[string][][]*int `json:"matrices"`
		Totals   map[string][]int    `json:"totals"`
	}
	require.Equal(t, http.StatusOK, get(t, e, "/api/dataset", &out))
	require.Len(t, out.Dates, 2)
	require.Len(t, out.Matrices["recovered"], 2)
	require.Equal(t, []int{0, 1}, out.Totals["recovered"])
}

func TestServer_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := dataset.NewLoadMetrics(reg)
	require.NoError(t, err)
	m.Regions.Set(2)

	e := newTestEcho(t, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "dataset_regions 2"))
}
