package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadSettings_Defaults(t *testing.T) {
	for _, k := range []string{"TABLELINKER_LOG_LEVEL", "LOG_LEVEL", "TABLELINKER_WORKERS", "METRICS_BACKEND", "STORAGE_BATCH_SIZE"} {
		t.Setenv(k, "")
	}

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", s.Logging.Level)
	}
	if s.Pipeline.Workers != 4 {
		t.Errorf("Pipeline.Workers = %d, want 4", s.Pipeline.Workers)
	}
	if s.Storage.BatchSize != 1000 {
		t.Errorf("Storage.BatchSize = %d, want 1000", s.Storage.BatchSize)
	}
	if s.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", s.Server.ReadTimeout)
	}
}

func TestLoadSettings_Overrides(t *testing.T) {
	t.Setenv("TABLELINKER_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TABLELINKER_WORKERS", "8")
	t.Setenv("METRICS_TAGS", "env:dev, service:tl ,")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "3s")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug (from alternate variable)", s.Logging.Level)
	}
	if s.Pipeline.Workers != 8 {
		t.Errorf("Pipeline.Workers = %d, want 8", s.Pipeline.Workers)
	}
	if len(s.Metrics.Tags) != 2 || s.Metrics.Tags[1] != "service:tl" {
		t.Errorf("Metrics.Tags = %v", s.Metrics.Tags)
	}
	if s.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v", s.Server.ShutdownTimeout)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad int", map[string]string{"TABLELINKER_WORKERS": "many"}, "invalid integer"},
		{"zero workers", map[string]string{"TABLELINKER_WORKERS": "0"}, "TABLELINKER_WORKERS must be positive"},
		{"bad backend", map[string]string{"METRICS_BACKEND": "graphite"}, "METRICS_BACKEND"},
		{"bad level", map[string]string{"TABLELINKER_LOG_LEVEL": "loud"}, "log level"},
		{"bad duration", map[string]string{"SERVER_READ_TIMEOUT": "soon"}, "invalid duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadSettings()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
