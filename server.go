package main

import (
	"net/http"
	"strconv"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"github.com/covglobe/covglobe/dataset"
)

// Server answers read-only queries against a loaded Dataset.
type Server struct {
	ds      *dataset.Dataset
	metrics http.Handler
}

func NewServer(ds *dataset.Dataset, metrics http.Handler) *Server {
	return &Server{ds: ds, metrics: metrics}
}

func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	api := e.Group("/api")
	api.GET("/dataset", s.handleGetDataset)
	api.GET("/dates", s.handleGetDates)
	api.GET("/coords", s.handleGetCoords)
	api.GET("/totals/:metric", s.handleGetTotals)
	api.GET("/snapshot/:index", s.handleGetSnapshot)
	api.GET("/regions/:index", s.handleGetRegion)
	api.GET("/diagnostics", s.handleGetDiagnostics)
}

func (s *Server) handleHealth(e echo.Context) error {
	return e.String(http.StatusOK, "ok")
}

func (s *Server) handleGetDataset(e echo.Context) error {
	return e.JSON(http.StatusOK, s.ds.Export())
}

func (s *Server) handleGetDates(e echo.Context) error {
	type datesResult struct {
		Dates []string `json:"dates"`
	}
	return e.JSON(http.StatusOK, datesResult{Dates: s.ds.Dates()})
}

func (s *Server) handleGetCoords(e echo.Context) error {
	type coordsResult struct {
		Coords [][2]*float64 `json:"coords"`
	}
	return e.JSON(http.StatusOK, coordsResult{Coords: s.ds.CoordPairs()})
}

func (s *Server) handleGetTotals(e echo.Context) error {
	m, err := dataset.ParseMetric(e.Param("metric"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	type totalsResult struct {
		Metric string   `json:"metric"`
		Dates  []string `json:"dates"`
		Totals []int    `json:"totals"`
	}
	return e.JSON(http.StatusOK, totalsResult{
		Metric: m.String(),
		Dates:  s.ds.Dates(),
		Totals: s.ds.Totals(m),
	})
}

// handleGetSnapshot accepts a timeline index or "latest".
func (s *Server) handleGetSnapshot(e echo.Context) error {
	idx := s.ds.NumDates() - 1
	if p := e.Param("index"); p != "latest" {
		v, err := strconv.Atoi(p)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "index must be an integer or \"latest\"")
		}
		idx = v
	}

	snap, err := s.ds.Snapshot(idx)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return e.JSON(http.StatusOK, snap)
}

func (s *Server) handleGetRegion(e echo.Context) error {
	idx, err := strconv.Atoi(e.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "index must be an integer")
	}
	region, ok := s.ds.Region(idx)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no such region")
	}

	type regionResult struct {
		Index    int               `json:"index"`
		Province string            `json:"province"`
		Country  string            `json:"country"`
		Coord    [2]*float64       `json:"coord"`
		Series   map[string][]*int `json:"series"`
	}
	out := regionResult{
		Index:    idx,
		Province: region.Province,
		Country:  region.Country,
		Coord:    region.Coord.Pair(),
		Series:   make(map[string][]*int, len(dataset.Metrics)),
	}
	for _, m := range dataset.Metrics {
		series, err := s.ds.Series(m, idx)
		if err != nil {
			return err
		}
		out.Series[m.String()] = series
	}
	return e.JSON(http.StatusOK, out)
}

func (s *Server) handleGetDiagnostics(e echo.Context) error {
	diag := s.ds.Diagnostics()
	counts := make(map[string]int)
	for kind, n := range diag.Counts() {
		counts[string(kind)] = n
	}

	type diagnosticsResult struct {
		Align  string               `json:"align"`
		Counts map[string]int       `json:"counts"`
		Events []dataset.Diagnostic `json:"events"`
	}
	return e.JSON(http.StatusOK, diagnosticsResult{
		Align:  string(s.ds.AlignMode()),
		Counts: counts,
		Events: diag.Events(),
	})
}

// httpErrorHandler reports server errors to Sentry before rendering them.
func httpErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code >= http.StatusInternalServerError {
			log.Errorw("request failed", "path", c.Path(), "error", err)
			if hub := sentryecho.GetHubFromContext(c); hub != nil {
				hub.CaptureException(err)
			}
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
