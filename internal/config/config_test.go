package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Backend.BaseURL != "http://localhost:5001" {
		t.Errorf("expected default base url, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSec != 30 {
		t.Errorf("expected TimeoutSec=30, got %d", cfg.Backend.TimeoutSec)
	}
	if cfg.Backend.NotIndexedStatus != 400 {
		t.Errorf("expected NotIndexedStatus=400, got %d", cfg.Backend.NotIndexedStatus)
	}
	if cfg.Backend.MockResults != 5 {
		t.Errorf("expected MockResults=5, got %d", cfg.Backend.MockResults)
	}
	if cfg.UI.Capacity != 10 {
		t.Errorf("expected Capacity=10, got %d", cfg.UI.Capacity)
	}
	if cfg.UI.Locale != "es" {
		t.Errorf("expected Locale=es, got %q", cfg.UI.Locale)
	}
	if !cfg.UI.AutoSearchEnabled() {
		t.Error("auto search should default to enabled")
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Cache.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.KeyPrefix != "scbir:" {
		t.Errorf("expected KeyPrefix='scbir:', got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Cache.SearchTTLSec != 600 || cfg.Cache.ThumbnailTTLSec != 3600 {
		t.Errorf("unexpected cache ttls %d/%d", cfg.Cache.SearchTTLSec, cfg.Cache.ThumbnailTTLSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	off := false
	cfg := Config{
		Backend: BackendConfig{BaseURL: "http://fp.internal:5000/", TimeoutSec: 5, NotIndexedStatus: 409},
		UI:      UIConfig{Capacity: 5, Locale: "en", AutoSearch: &off},
		Cache:   CacheConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.Backend.BaseURL != "http://fp.internal:5000" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSec != 5 || cfg.Backend.NotIndexedStatus != 409 {
		t.Errorf("backend values overridden: %+v", cfg.Backend)
	}
	if cfg.UI.Capacity != 5 || cfg.UI.Locale != "en" || cfg.UI.AutoSearchEnabled() {
		t.Errorf("ui values overridden: %+v", cfg.UI)
	}
	if cfg.Cache.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Cache.KeyPrefix)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := Config{}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "localhost:5001" }, true},
		{"ftp base url", func(c *Config) { c.Backend.BaseURL = "ftp://host" }, true},
		{"not indexed 500", func(c *Config) { c.Backend.NotIndexedStatus = 500 }, true},
		{"capacity too large", func(c *Config) { c.UI.Capacity = 51 }, true},
		{"unknown locale", func(c *Config) { c.UI.Locale = "fr" }, true},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, true},
		{"cache without addrs", func(c *Config) { c.Cache.Enabled = true }, true},
		{"cache unknown driver", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Addrs = []string{"localhost:6379"}
			c.Cache.Driver = "memcached"
		}, true},
		{"cache ok", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Addrs = []string{"localhost:6379"}
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("SCBIR_API_BASE_URL", "http://10.0.0.5:5000")
	t.Setenv("SCBIR_USE_MOCK", "")

	cfg, err := Parse([]byte(`
backend:
  base_url: ${SCBIR_API_BASE_URL:-http://localhost:5001}
  mock: ${SCBIR_USE_MOCK:-true}
ui:
  capacity: 5
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:5000" {
		t.Errorf("base url = %q", cfg.Backend.BaseURL)
	}
	if !cfg.Backend.Mock {
		t.Error("expected mock default to apply for empty variable")
	}
	if cfg.UI.Capacity != 5 {
		t.Errorf("capacity = %d", cfg.UI.Capacity)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  locale: en\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UI.Locale != "en" {
		t.Errorf("locale = %q", cfg.UI.Locale)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("backend: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
