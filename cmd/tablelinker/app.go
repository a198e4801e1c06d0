package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tablelinker/internal/config"
	"tablelinker/internal/logging"
	"tablelinker/internal/pipeline"
)

// app carries state shared by all subcommands.
type app struct {
	settings *config.Settings
	runner   *pipeline.Runner

	envFiles       []string
	logLevel       string
	logFormat      string
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string
	job            string

	closeMetrics func()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tablelinker",
		Short:         "Clean and convert tabular data",
		Long:          "tablelinker normalizes CSV, TSV and Excel tables and runs convertor task lists over them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringSliceVar(&a.envFiles, "env-file", nil, "env files to load before reading settings (default .env when present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text, json")
	pf.StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog")
	pf.StringVar(&a.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL")
	pf.StringVar(&a.statsdAddr, "statsd-addr", "", "DogStatsD address")
	pf.StringVar(&a.job, "job", "", "job name used in metrics and logs")

	root.AddCommand(
		a.convertCmd(),
		a.batchCmd(),
		a.cleanCmd(),
		a.listCmd(),
		a.validateCmd(),
		a.mergeCmd(),
		a.exportCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads settings, applies flag overrides and installs the logger and
// metrics backend.
func (a *app) setup(cmd *cobra.Command) error {
	if err := loadEnv(a.envFiles); err != nil {
		return err
	}
	s, err := config.LoadSettings()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("log-level", &s.Logging.Level, a.logLevel)
	override("log-format", &s.Logging.Format, a.logFormat)
	override("metrics-backend", &s.Metrics.Backend, a.metricsBackend)
	override("pushgateway-url", &s.Metrics.PushgatewayURL, a.pushgatewayURL)
	override("statsd-addr", &s.Metrics.StatsdAddr, a.statsdAddr)
	override("job", &s.Pipeline.Job, a.job)
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	a.settings = s

	logging.Setup(s.Logging.Level, s.Logging.Format)

	closeFn, err := setupMetrics(s.Pipeline.Job, s.Metrics)
	if err != nil {
		slog.Warn("metrics disabled", "backend", s.Metrics.Backend, "error", err)
		closeFn = func() {}
	}
	a.closeMetrics = closeFn

	a.runner = &pipeline.Runner{
		Registry: pipeline.DefaultRegistry(),
		TempDir:  s.Pipeline.TempDir,
		Job:      s.Pipeline.Job,
	}
	return nil
}

// shutdown flushes metrics. Safe to call when setup never ran.
func (a *app) shutdown() {
	if a.closeMetrics != nil {
		a.closeMetrics()
		a.closeMetrics = nil
	}
}

// loadEnv loads env files without overriding variables already set. With
// no explicit files a missing .env is not an error.
func loadEnv(files []string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// parseDelimiter accepts a single character or the names tab, comma,
// semicolon and pipe. Empty means auto.
func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("%w: delimiter %q must be a single character", errInvalid, s)
	}
	return r[0], nil
}
