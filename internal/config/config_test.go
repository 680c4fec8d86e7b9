package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileIsNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error is not fs.ErrNotExist: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[paths]
assets_dir = "/clips"

[encoder]
provider = "stub"
dimensions = 64

[ingest]
workers = 2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.AssetsDir != "/clips" {
		t.Errorf("assets_dir = %q", cfg.Paths.AssetsDir)
	}
	if cfg.Encoder.Provider != "stub" || cfg.Encoder.Dimensions != 64 {
		t.Errorf("encoder = %+v", cfg.Encoder)
	}
	if cfg.Ingest.Workers != 2 {
		t.Errorf("workers = %d", cfg.Ingest.Workers)
	}
	// Untouched sections keep defaults.
	if cfg.Keyframes.Count != defaultKeyframeCount {
		t.Errorf("keyframes.count = %d", cfg.Keyframes.Count)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero keyframes", func(c *Config) { c.Keyframes.Count = 0 }, "keyframes.count"},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest.workers"},
		{"bad encoder", func(c *Config) { c.Encoder.Provider = "onnx" }, "encoder.provider"},
		{"zero dimensions", func(c *Config) { c.Encoder.Dimensions = 0 }, "encoder.dimensions"},
		{"bad backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }, "postgres_dsn"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}
