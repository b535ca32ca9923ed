// Package config holds the YAML configuration of a sweep.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tuneinsight/lattigo/v4/ring"
	"gopkg.in/yaml.v3"

	"mfmodell/search"
)

// Config is the root configuration.
type Config struct {
	// Levels and Ells are range specs such as "1..100" or "2,3,5,7".
	Levels   string         `yaml:"levels"`
	Ells     string         `yaml:"ells"`
	Weights  WeightsConfig  `yaml:"weights"`
	Workers  int            `yaml:"workers"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Report   ReportConfig   `yaml:"report"`
}

// WeightsConfig is the weight search bound: Min through
// max(ℓ+EllOffset, Floor).
type WeightsConfig struct {
	Min       int `yaml:"min"`
	EllOffset int `yaml:"ell_offset"`
	Floor     int `yaml:"floor"`
}

// DatabaseConfig selects the newform source. The memory driver loads
// Fixtures; the sqlite driver opens Path.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Fixtures string `yaml:"fixtures"`
}

// CacheConfig locates the reduction map cache.
type CacheConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// OutputConfig controls the per-ℓ output files.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Tag    string `yaml:"tag"`
	MaxAP  int    `yaml:"max_ap"`
	Append bool   `yaml:"append"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ReportConfig configures the HTML report.
type ReportConfig struct {
	Path  string `yaml:"path"`
	Title string `yaml:"title"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Levels:  "1..100",
		Ells:    "2,3,5,7",
		Weights: WeightsConfig{Min: 2, EllOffset: 1, Floor: 4},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/lmfdb.db",
		},
		Cache: CacheConfig{Path: "data/maps.db"},
		Output: OutputConfig{
			Dir:   "out",
			Tag:   "reductions",
			MaxAP: 0,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Report: ReportConfig{
			Path:  "out/report.html",
			Title: "Reductions of newforms mod ℓ",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		cfg.applyEnvOverrides()
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MFMODELL_DATABASE"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MFMODELL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LevelList expands Levels.
func (c *Config) LevelList() ([]int, error) {
	levels, err := ParseIntList(c.Levels)
	if err != nil {
		return nil, fmt.Errorf("levels: %w", err)
	}
	return levels, nil
}

// EllList expands Ells.
func (c *Config) EllList() ([]uint64, error) {
	vals, err := ParseIntList(c.Ells)
	if err != nil {
		return nil, fmt.Errorf("ells: %w", err)
	}
	out := make([]uint64, 0, len(vals))
	for _, v := range vals {
		if v < 2 {
			return nil, fmt.Errorf("ells: %d is not prime", v)
		}
		out = append(out, uint64(v))
	}
	return out, nil
}

// WeightPolicy converts the weight bounds.
func (c *Config) WeightPolicy() search.WeightPolicy {
	return search.WeightPolicy{Min: c.Weights.Min, EllOffset: c.Weights.EllOffset, Floor: c.Weights.Floor}
}

// Plan builds the sweep plan.
func (c *Config) Plan() (search.Plan, error) {
	levels, err := c.LevelList()
	if err != nil {
		return search.Plan{}, err
	}
	ells, err := c.EllList()
	if err != nil {
		return search.Plan{}, err
	}
	return search.Plan{Levels: levels, Ells: ells, Weights: c.WeightPolicy(), Workers: c.Workers}, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	levels, err := c.LevelList()
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		return fmt.Errorf("levels: no levels configured")
	}
	for _, n := range levels {
		if n < 1 {
			return fmt.Errorf("levels: %d is not a positive level", n)
		}
	}
	ells, err := c.EllList()
	if err != nil {
		return err
	}
	if len(ells) == 0 {
		return fmt.Errorf("ells: no primes configured")
	}
	for _, ell := range ells {
		if !ring.IsPrime(ell) {
			return fmt.Errorf("ells: %d is not prime", ell)
		}
	}
	if c.Weights.Min < 1 {
		return fmt.Errorf("weights: min must be positive, got %d", c.Weights.Min)
	}
	if c.Weights.Floor < c.Weights.Min {
		return fmt.Errorf("weights: floor %d is below min %d", c.Weights.Floor, c.Weights.Min)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers: must not be negative, got %d", c.Workers)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database: sqlite driver needs a path")
		}
	case "memory":
		if c.Database.Fixtures == "" {
			return fmt.Errorf("database: memory driver needs a fixtures file")
		}
	default:
		return fmt.Errorf("database: unknown driver %q (valid: sqlite, memory)", c.Database.Driver)
	}
	if c.Output.MaxAP < 0 {
		return fmt.Errorf("output: max_ap must not be negative, got %d", c.Output.MaxAP)
	}
	if c.Output.Tag == "" {
		return fmt.Errorf("output: tag must not be empty")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q (valid: json, console)", c.Logging.Format)
	}
	return nil
}
