package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	logging "github.com/ipfs/go-log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/acme/autocert"

	cli "github.com/urfave/cli/v2"

	"github.com/covglobe/covglobe/dataset"
)

var log = logging.Logger("covglobe")

func main() {

	app := cli.NewApp()
	app.Name = "covglobe"
	app.Usage = "load COVID-19 time series and serve them to a globe renderer"

	app.Flags = []cli.Flag{}
	app.Commands = []*cli.Command{
		serveCmd,
		summaryCmd,
	}

	app.RunAndExitOnError()
}

// setup resolves the config and wires logging and tracing. The returned
// func flushes the tracer.
func setup(cctx *cli.Context) (Config, func(), error) {
	cfg, err := configFromContext(cctx)
	if err != nil {
		return Config{}, nil, err
	}
	for _, name := range []string{"covglobe", "dataset"} {
		if err := logging.SetLogLevel(name, cfg.LogLevel); err != nil {
			return Config{}, nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
		}
	}

	shutdown, err := setupTracing(cfg.TraceStdout)
	if err != nil {
		return Config{}, nil, err
	}
	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warnw("flushing traces", "error", err)
		}
	}
	return cfg, flush, nil
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "load the dataset once and serve it over HTTP",
	Flags: withConfigFlags(
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "address to listen on",
			EnvVars: []string{"COVGLOBE_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "auto-tls-domain",
			EnvVars: []string{"COVGLOBE_AUTO_TLS_DOMAIN"},
		},
		&cli.StringFlag{
			Name:    "sentry-dsn",
			EnvVars: []string{"SENTRY_DSN"},
		},
	),
	Action: func(cctx *cli.Context) error {
		cfg, flush, err := setup(cctx)
		if err != nil {
			return err
		}
		defer flush()

		if cfg.SentryDSN != "" {
			if err := sentry.Init(sentry.ClientOptions{
				Dsn:              cfg.SentryDSN,
				EnableTracing:    true,
				TracesSampleRate: 0.2,
			}); err != nil {
				log.Errorf("Sentry initialization failed: %s", err)
			}
			defer sentry.Flush(2 * time.Second)
		}

		metrics, err := dataset.NewLoadMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		opts, err := cfg.datasetOptions(metrics)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Infow("Loading dataset", "confirmed", cfg.Sources.Confirmed, "deceased", cfg.Sources.Deceased, "recovered", cfg.Sources.Recovered)
		ds, err := dataset.Load(ctx, cfg.Sources, opts)
		if err != nil {
			sentry.CaptureException(err)
			return err
		}

		log.Infof("Configuring HTTP server")
		e := echo.New()
		e.HideBanner = true
		e.Use(middleware.Logger())
		e.Use(middleware.Recover())
		e.Use(middleware.CORS())
		if cfg.SentryDSN != "" {
			e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
		}
		e.HTTPErrorHandler = httpErrorHandler(e)

		NewServer(ds, promhttp.Handler()).RegisterRoutes(e)

		if cfg.AutoTLSDomain != "" {
			cachedir, err := os.UserCacheDir()
			if err != nil {
				return err
			}

			e.AutoTLSManager.HostPolicy = autocert.HostWhitelist(cfg.AutoTLSDomain)
			// Cache certificates to avoid issues with rate limits (https://letsencrypt.org/docs/rate-limits)
			e.AutoTLSManager.Cache = autocert.DirCache(filepath.Join(cachedir, "covglobe", "certs"))
		}

		errc := make(chan error, 1)
		go func() {
			if cfg.AutoTLSDomain != "" {
				errc <- e.StartAutoTLS(cfg.Listen)
			} else {
				errc <- e.Start(cfg.Listen)
			}
		}()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		log.Info("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(sctx)
	},
}

var summaryCmd = &cli.Command{
	Name:  "summary",
	Usage: "load the dataset and print its shape, latest totals and diagnostics",
	Flags: withConfigFlags(),
	Action: func(cctx *cli.Context) error {
		cfg, flush, err := setup(cctx)
		if err != nil {
			return err
		}
		defer flush()

		opts, err := cfg.datasetOptions(nil)
		if err != nil {
			return err
		}
		ds, err := dataset.Load(cctx.Context, cfg.Sources, opts)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return writeSummary(cctx.App.Writer, ds)
	},
}
