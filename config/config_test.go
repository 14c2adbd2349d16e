package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero chunk size",
			mutate: func(cfg *Config) {
				cfg.ChunkSize = 0
			},
			wantErr: "chunk size",
		},
		{
			name: "negative chunk delay",
			mutate: func(cfg *Config) {
				cfg.ChunkDelay = -1 * time.Millisecond
			},
			wantErr: "chunk delay",
		},
		{
			name: "negative request delay",
			mutate: func(cfg *Config) {
				cfg.RequestDelay = -1 * time.Millisecond
			},
			wantErr: "request delay",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "empty output dir",
			mutate: func(cfg *Config) {
				cfg.OutputDir = ""
			},
			wantErr: "output dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.ChunkSize != 50 || cfg.ChunkDelay != 2500*time.Millisecond || cfg.RequestDelay != 25*time.Millisecond {
		t.Fatalf("unexpected pacing defaults: %+v", cfg)
	}
	if cfg.Timeout != 300*time.Second {
		t.Fatalf("timeout = %v, want 300s", cfg.Timeout)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "42")
	t.Setenv("SCRAPER_TEST_BAD_INT", "forty")
	t.Setenv("SCRAPER_TEST_MS", "2500")
	t.Setenv("SCRAPER_TEST_DURATION", "3s")
	t.Setenv("SCRAPER_TEST_STRING", "  data  ")

	if v, ok, err := EnvInt("SCRAPER_TEST_INT"); err != nil || !ok || v != 42 {
		t.Fatalf("EnvInt = %d, %v, %v", v, ok, err)
	}
	if _, _, err := EnvInt("SCRAPER_TEST_BAD_INT"); err == nil {
		t.Fatalf("expected error for non-numeric int")
	}
	if _, ok, err := EnvInt("SCRAPER_TEST_UNSET"); ok || err != nil {
		t.Fatalf("unset int should be absent, got ok=%v err=%v", ok, err)
	}
	if v, ok, err := EnvDuration("SCRAPER_TEST_MS"); err != nil || !ok || v != 2500*time.Millisecond {
		t.Fatalf("EnvDuration(ms) = %v, %v, %v", v, ok, err)
	}
	if v, ok, err := EnvDuration("SCRAPER_TEST_DURATION"); err != nil || !ok || v != 3*time.Second {
		t.Fatalf("EnvDuration = %v, %v, %v", v, ok, err)
	}
	if v, ok := EnvString("SCRAPER_TEST_STRING"); !ok || v != "data" {
		t.Fatalf("EnvString = %q, %v", v, ok)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SCRAPER_TEST_FROM_FILE=from-file\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SCRAPER_TEST_FROM_FILE", "")
	os.Unsetenv("SCRAPER_TEST_FROM_FILE")

	if err := LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if v, ok := EnvString("SCRAPER_TEST_FROM_FILE"); !ok || v != "from-file" {
		t.Fatalf("value = %q, want from-file", v)
	}
}
