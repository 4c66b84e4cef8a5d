package main

import (
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/covglobe/covglobe/dataset"
)

const jhuBase = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/"

// Config is everything the binary needs to load and serve a dataset.
type Config struct {
	Sources       dataset.Sources `yaml:"sources"`
	FetchTimeout  time.Duration   `yaml:"fetch_timeout"`
	Align         string          `yaml:"align"`
	StrictHeaders bool            `yaml:"strict_headers"`

	Listen        string `yaml:"listen"`
	AutoTLSDomain string `yaml:"auto_tls_domain"`
	SentryDSN     string `yaml:"sentry_dsn"`
	LogLevel      string `yaml:"log_level"`
	TraceStdout   bool   `yaml:"trace_stdout"`
}

func defaultConfig() Config {
	return Config{
		Sources: dataset.Sources{
			Confirmed: jhuBase + "time_series_covid19_confirmed_global.csv",
			Deceased:  jhuBase + "time_series_covid19_deaths_global.csv",
			Recovered: jhuBase + "time_series_covid19_recovered_global.csv",
		},
		FetchTimeout: time.Minute,
		Align:        string(dataset.AlignPositional),
		Listen:       ":6000",
		LogLevel:     "info",
	}
}

func loadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// overlay returns c with every non-zero field of o applied on top.
func (c Config) overlay(o Config) Config {
	if o.Sources.Confirmed != "" {
		c.Sources.Confirmed = o.Sources.Confirmed
	}
	if o.Sources.Deceased != "" {
		c.Sources.Deceased = o.Sources.Deceased
	}
	if o.Sources.Recovered != "" {
		c.Sources.Recovered = o.Sources.Recovered
	}
	if o.FetchTimeout != 0 {
		c.FetchTimeout = o.FetchTimeout
	}
	if o.Align != "" {
		c.Align = o.Align
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.AutoTLSDomain != "" {
		c.AutoTLSDomain = o.AutoTLSDomain
	}
	if o.SentryDSN != "" {
		c.SentryDSN = o.SentryDSN
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	c.StrictHeaders = c.StrictHeaders || o.StrictHeaders
	c.TraceStdout = c.TraceStdout || o.TraceStdout
	return c
}

func (c Config) datasetOptions(m *dataset.LoadMetrics) (dataset.Options, error) {
	align, err := dataset.ParseAlignMode(c.Align)
	if err != nil {
		return dataset.Options{}, err
	}
	return dataset.Options{
		Align:         align,
		StrictHeaders: c.StrictHeaders,
		FetchTimeout:  c.FetchTimeout,
		Metrics:       m,
	}, nil
}

var configFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "YAML config file; flags override it",
		EnvVars: []string{"COVGLOBE_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "confirmed",
		Usage:   "confirmed cases CSV (path or URL)",
		EnvVars: []string{"COVGLOBE_CONFIRMED"},
	},
	&cli.StringFlag{
		Name:    "deceased",
		Usage:   "deaths CSV (path or URL)",
		EnvVars: []string{"COVGLOBE_DECEASED"},
	},
	&cli.StringFlag{
		Name:    "recovered",
		Usage:   "recovered CSV (path or URL)",
		EnvVars: []string{"COVGLOBE_RECOVERED"},
	},
	&cli.DurationFlag{
		Name:    "fetch-timeout",
		Usage:   "deadline for fetching all three sources",
		EnvVars: []string{"COVGLOBE_FETCH_TIMEOUT"},
	},
	&cli.StringFlag{
		Name:    "align",
		Usage:   "row alignment across sources: positional or keyed",
		EnvVars: []string{"COVGLOBE_ALIGN"},
	},
	&cli.BoolFlag{
		Name:    "strict-headers",
		Usage:   "fail when the date headers of the sources differ",
		EnvVars: []string{"COVGLOBE_STRICT_HEADERS"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		EnvVars: []string{"COVGLOBE_LOG_LEVEL"},
	},
	&cli.BoolFlag{
		Name:    "trace-stdout",
		Usage:   "print trace spans to stderr",
		EnvVars: []string{"COVGLOBE_TRACE_STDOUT"},
	},
}

func withConfigFlags(extra ...cli.Flag) []cli.Flag {
	flags := make([]cli.Flag, 0, len(configFlags)+len(extra))
	flags = append(flags, configFlags...)
	return append(flags, extra...)
}

// configFromContext resolves defaults, then the config file, then flags.
func configFromContext(cctx *cli.Context) (Config, error) {
	cfg := defaultConfig()
	if path := cctx.String("config"); path != "" {
		file, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.overlay(file)
	}

	if cctx.IsSet("confirmed") {
		cfg.Sources.Confirmed = cctx.String("confirmed")
	}
	if cctx.IsSet("deceased") {
		cfg.Sources.Deceased = cctx.String("deceased")
	}
	if cctx.IsSet("recovered") {
		cfg.Sources.Recovered = cctx.String("recovered")
	}
	if cctx.IsSet("fetch-timeout") {
		cfg.FetchTimeout = cctx.Duration("fetch-timeout")
	}
	if cctx.IsSet("align") {
		cfg.Align = cctx.String("align")
	}
	if cctx.IsSet("strict-headers") {
		cfg.StrictHeaders = cctx.Bool("strict-headers")
	}
	if cctx.IsSet("log-level") {
		cfg.LogLevel = cctx.String("log-level")
	}
	if cctx.IsSet("trace-stdout") {
		cfg.TraceStdout = cctx.Bool("trace-stdout")
	}
	if cctx.IsSet("listen") {
		cfg.Listen = cctx.String("listen")
	}
	if cctx.IsSet("auto-tls-domain") {
		cfg.AutoTLSDomain = cctx.String("auto-tls-domain")
	}
	if cctx.IsSet("sentry-dsn") {
		cfg.SentryDSN = cctx.String("sentry-dsn")
	}

	if err := cfg.Sources.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
