package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves the raw text behind a locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// HTTPFetcher fetches http(s) locators, retrying transient failures.
type HTTPFetcher struct {
	client *retryablehttp.Client
}

func NewHTTPFetcher(retries int, timeout time.Duration) *HTTPFetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.Logger = leveledLogger{}
	if timeout > 0 {
		c.HTTPClient.Timeout = timeout
	}
	return &HTTPFetcher{client: c}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", locator, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// FileFetcher reads plain paths and file:// URLs.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := locator
	if u, err := url.Parse(locator); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	return os.ReadFile(path)
}

// AutoFetcher dispatches on the locator scheme: http and https go to HTTP,
// everything else is read from disk.
type AutoFetcher struct {
	HTTP *HTTPFetcher
	File FileFetcher
}

func NewAutoFetcher(timeout time.Duration) *AutoFetcher {
	return &AutoFetcher{HTTP: NewHTTPFetcher(3, timeout)}
}

func (f *AutoFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if u, err := url.Parse(locator); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return f.HTTP.Fetch(ctx, locator)
	}
	return f.File.Fetch(ctx, locator)
}

// FetchAll fetches the three sources concurrently. The first failure cancels
// the remaining fetches and is returned as a SourceUnavailable LoadError; no
// partial result is returned.
func FetchAll(ctx context.Context, f Fetcher, src Sources) ([numMetrics][]byte, error) {
	var bodies [numMetrics][]byte

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range Metrics {
		m := m
		g.Go(func() error {
			locator := src.Locator(m)
			b, err := f.Fetch(gctx, locator)
			if err != nil {
				return &LoadError{
					Op:     "dataset.fetch",
					Kind:   KindSourceUnavailable,
					Source: locator,
					Err:    err,
				}
			}
			log.Debugw("fetched source", "metric", m.String(), "locator", locator, "bytes", len(b))
			bodies[m] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return [numMetrics][]byte{}, err
	}
	return bodies, nil
}

// leveledLogger routes retryablehttp output to the package logger.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { log.Errorw(msg, kv...) }
func (leveledLogger) Info(msg string, kv ...interface{})  { log.Debugw(msg, kv...) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { log.Debugw(msg, kv...) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { log.Warnw(msg, kv...) }
