// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"dcf_valuation/pkg/core/valuation"

	"gopkg.in/yaml.v2"
)

// DefaultPath is where the API and CLI look for the config file.
const DefaultPath = "config/dcf.yaml"

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Defaults    ValuationDefaults `yaml:"defaults"`
	Data        DataConfig        `yaml:"data"`
	Growth      GrowthConfig      `yaml:"growth"`
	Database    DatabaseConfig    `yaml:"database"`
	Sensitivity SensitivityConfig `yaml:"sensitivity"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ValuationDefaults fill in request fields the caller omits.
type ValuationDefaults struct {
	Years              int     `yaml:"years" json:"years"`
	Growth             float64 `yaml:"growth" json:"growth"`
	FadeYears          int     `yaml:"fade_years" json:"fade_years"`
	WACC               float64 `yaml:"wacc" json:"wacc"`
	TerminalGrowth     float64 `yaml:"terminal_growth" json:"terminal_growth"`
	StartYear          int     `yaml:"start_year" json:"start_year"`
	UseEstimatedGrowth bool    `yaml:"use_estimated_growth" json:"use_yahoo_growth"`
}

type DataConfig struct {
	SnapshotDir string `yaml:"snapshot_dir"`
}

type GrowthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	URLPattern string        `yaml:"url_pattern"`
	Timeout    time.Duration `yaml:"timeout"`
	RedisAddr  string        `yaml:"redis_addr"` // Empty disables the cache
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // Empty disables persistence
}

type SensitivityConfig struct {
	Workers int `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Defaults: ValuationDefaults{
			Years:              5,
			Growth:             0.08,
			FadeYears:          2,
			WACC:               0.10,
			TerminalGrowth:     0.025,
			StartYear:          2015,
			UseEstimatedGrowth: true,
		},
		Data: DataConfig{SnapshotDir: "data/snapshots"},
		Growth: GrowthConfig{
			Enabled:  true,
			Timeout:  10 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DCF_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Growth.RedisAddr = v
	}
	if v := os.Getenv("SNAPSHOT_DIR"); v != "" {
		c.Data.SnapshotDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SENSITIVITY_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SENSITIVITY_WORKERS %q: %w", v, err)
		}
		c.Sensitivity.Workers = n
	}
	return nil
}

// Validate rejects defaults the engine would refuse anyway.
func (c *Config) Validate() error {
	d := c.Defaults
	if d.Years <= 0 || d.Years > valuation.MaxExplicitYears {
		return fmt.Errorf("defaults.years must be within [1, %d], got %d", valuation.MaxExplicitYears, d.Years)
	}
	if d.FadeYears < 0 || d.FadeYears > d.Years {
		return fmt.Errorf("defaults.fade_years must be within [0, %d], got %d", d.Years, d.FadeYears)
	}
	if d.WACC == d.TerminalGrowth {
		return fmt.Errorf("defaults.wacc must differ from defaults.terminal_growth")
	}
	return nil
}
