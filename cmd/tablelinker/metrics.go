package main

import (
	"fmt"
	"log/slog"

	"tablelinker/internal/config"
	"tablelinker/internal/metrics"
	"tablelinker/internal/metrics/datadog"
	"tablelinker/internal/metrics/prompush"
)

// Backend constructors, replaced in tests.
var (
	newPushBackend = func(job, url string) (metrics.Backend, error) {
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	newDatadogBackend = func(cfg datadog.Config) (metrics.Backend, error) {
		b, err := datadog.NewBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
)

// setupMetrics installs the configured backend and returns the function
// that flushes (and closes) it at exit.
func setupMetrics(job string, s config.MetricsSettings) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch s.Backend {
	case "", "none":
		return func() {}, nil
	case "pushgateway":
		b, err = newPushBackend(job, s.PushgatewayURL)
	case "datadog":
		b, err = newDatadogBackend(datadog.Config{
			Addr:       s.StatsdAddr,
			Namespace:  "tablelinker.",
			GlobalTags: s.Tags,
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", s.Backend)
	}
	if err != nil {
		return nil, err
	}

	metrics.SetBackend(b)
	slog.Debug("metrics enabled", "backend", s.Backend, "job", job)
	return func() {
		if err := metrics.Flush(); err != nil {
			slog.Warn("metrics flush failed", "error", err)
		}
		if c, ok := b.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				slog.Warn("metrics close failed", "error", err)
			}
		}
	}, nil
}
