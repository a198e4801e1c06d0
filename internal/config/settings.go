package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Settings holds process-level configuration. Every field can be set through
// the environment; CLI flags override what is loaded here.
type Settings struct {
	Logging  LoggingSettings
	Pipeline PipelineSettings
	Metrics  MetricsSettings
	Storage  StorageSettings
	Server   ServerSettings
}

// LoggingSettings configures the slog handler.
type LoggingSettings struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `env:"TABLELINKER_LOG_LEVEL" envAlt:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"TABLELINKER_LOG_FORMAT" envAlt:"LOG_FORMAT" default:"text"`
}

// PipelineSettings controls step materialization and batch runs.
type PipelineSettings struct {
	// TempDir holds intermediate step files. Empty means os.TempDir().
	TempDir string `env:"TABLELINKER_TEMP_DIR"`

	// Workers bounds the number of files converted concurrently by "batch".
	Workers int `env:"TABLELINKER_WORKERS" default:"4"`

	// Job labels metrics and log lines.
	Job string `env:"TABLELINKER_JOB" default:"tablelinker"`
}

// MetricsSettings selects and configures the metrics backend.
type MetricsSettings struct {
	// Backend is none, pushgateway or datadog.
	Backend string `env:"METRICS_BACKEND" default:"none"`

	// PushgatewayURL is the base URL of the Prometheus Pushgateway.
	PushgatewayURL string `env:"PUSHGATEWAY_URL" default:"http://localhost:9091"`

	// StatsdAddr is the DogStatsD address.
	StatsdAddr string `env:"DD_DOGSTATSD_ADDR" envAlt:"STATSD_ADDR" default:"127.0.0.1:8125"`

	// Tags are global Datadog tags, comma separated.
	Tags []string `env:"METRICS_TAGS"`
}

// StorageSettings configures database export.
type StorageSettings struct {
	// Kind is the backend: sqlite, postgres, mssql, mysql.
	Kind string `env:"STORAGE_KIND" default:"sqlite"`

	// DSN is the backend connection string.
	DSN string `env:"STORAGE_DSN" envAlt:"DATABASE_URL"`

	// BatchSize is the number of rows per bulk insert.
	BatchSize int `env:"STORAGE_BATCH_SIZE" default:"1000"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr            string        `env:"SERVER_ADDR" default:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// MaxUploadBytes caps the size of a posted table.
	MaxUploadBytes int64 `env:"SERVER_MAX_UPLOAD_BYTES" default:"33554432"`
}

// LoadSettings reads Settings from environment variables, applying defaults
// for unset values, and validates the result.
func LoadSettings() (*Settings, error) {
	s := &Settings{}
	if err := loadStruct(reflect.ValueOf(s).Elem()); err != nil {
		return nil, fmt.Errorf("settings load: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings validation: %w", err)
	}
	return s, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		value := os.Getenv(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = os.Getenv(alt)
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}
	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks the settings and reports every failure at once.
func (s *Settings) Validate() error {
	var errs []string

	levels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !levels[strings.ToLower(s.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("log level %q must be one of: debug, info, warn, error", s.Logging.Level))
	}
	formats := map[string]bool{"text": true, "json": true}
	if !formats[strings.ToLower(s.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("log format %q must be one of: text, json", s.Logging.Format))
	}
	if s.Pipeline.Workers <= 0 {
		errs = append(errs, "TABLELINKER_WORKERS must be positive")
	}
	switch s.Metrics.Backend {
	case "", "none", "pushgateway", "datadog":
	default:
		errs = append(errs, fmt.Sprintf("METRICS_BACKEND %q must be one of: none, pushgateway, datadog", s.Metrics.Backend))
	}
	if s.Storage.BatchSize <= 0 {
		errs = append(errs, "STORAGE_BATCH_SIZE must be positive")
	}
	if s.Server.MaxUploadBytes <= 0 {
		errs = append(errs, "SERVER_MAX_UPLOAD_BYTES must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
