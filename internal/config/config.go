package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the input and output directory configuration.
type Paths struct {
	AssetsDir string `toml:"assets_dir"`
	OutputDir string `toml:"output_dir"`
}

// Keyframes controls keyframe sampling.
type Keyframes struct {
	Count       int     `toml:"count"`
	MinDuration float64 `toml:"min_duration"`
}

// Encoder selects and configures the embedding encoder.
type Encoder struct {
	Provider   string `toml:"provider"` // "ollama" or "stub"
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// Ingest controls pipeline execution.
type Ingest struct {
	Workers int `toml:"workers"`
}

// Store selects the index backend.
type Store struct {
	Backend     string `toml:"backend"` // "files" or "postgres"
	PostgresDSN string `toml:"postgres_dsn"`
}

// Annotate configures the optional vision-model tagger.
type Annotate struct {
	Provider  string `toml:"provider"` // "ollama" or "stub"
	BaseURL   string `toml:"base_url"`
	ChatModel string `toml:"chat_model"`
}

// Logging controls log output.
type Logging struct {
	Level string `toml:"level"`
}

// Config is the root configuration for clipindex.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Keyframes Keyframes `toml:"keyframes"`
	Encoder   Encoder   `toml:"encoder"`
	Ingest    Ingest    `toml:"ingest"`
	Store     Store     `toml:"store"`
	Annotate  Annotate  `toml:"annotate"`
	Logging   Logging   `toml:"logging"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "clipindex.toml"
	}
	return filepath.Join(home, ".config", "clipindex", "config.toml")
}

// Load reads the TOML file at path, layered over Default. A missing
// file is an error; callers that want to fall back to the defaults for
// the conventional location check for fs.ErrNotExist themselves.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Paths.AssetsDir = expandHome(strings.TrimSpace(c.Paths.AssetsDir))
	c.Paths.OutputDir = expandHome(strings.TrimSpace(c.Paths.OutputDir))
	c.Encoder.Provider = strings.ToLower(strings.TrimSpace(c.Encoder.Provider))
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Annotate.Provider = strings.ToLower(strings.TrimSpace(c.Annotate.Provider))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	if c.Keyframes.Count < 1 {
		return fmt.Errorf("keyframes.count must be at least 1, got %d", c.Keyframes.Count)
	}
	if c.Keyframes.MinDuration <= 0 {
		return fmt.Errorf("keyframes.min_duration must be positive, got %g", c.Keyframes.MinDuration)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	switch c.Encoder.Provider {
	case "ollama", "stub":
	default:
		return fmt.Errorf("encoder.provider must be \"ollama\" or \"stub\", got %q", c.Encoder.Provider)
	}
	if c.Encoder.Dimensions < 1 {
		return fmt.Errorf("encoder.dimensions must be positive, got %d", c.Encoder.Dimensions)
	}
	switch c.Store.Backend {
	case "files":
	case "postgres":
		if strings.TrimSpace(c.Store.PostgresDSN) == "" {
			return errors.New("store.postgres_dsn is required when store.backend is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.backend must be \"files\" or \"postgres\", got %q", c.Store.Backend)
	}
	switch c.Annotate.Provider {
	case "ollama", "stub":
	default:
		return fmt.Errorf("annotate.provider must be \"ollama\" or \"stub\", got %q", c.Annotate.Provider)
	}
	return nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
